package ir

// EngineVersion identifies the solver release. Archived verdicts record it
// so regressions can be traced to the engine build that produced them.
const EngineVersion = "0.3.0"

// IRVersion identifies the IR schema. Bump on any change that alters the
// meaning of serialized instances.
const IRVersion = "1"
