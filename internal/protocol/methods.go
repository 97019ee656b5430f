package protocol

// Protocol method names used by the bridge and the client session.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "initialized"
	MethodShutdown    = "shutdown"
	MethodExit        = "exit"

	MethodDidOpen   = "textDocument/didOpen"
	MethodDidChange = "textDocument/didChange"
	MethodDidClose  = "textDocument/didClose"
	MethodDidSave   = "textDocument/didSave"

	MethodCompletion     = "textDocument/completion"
	MethodHover          = "textDocument/hover"
	MethodDefinition     = "textDocument/definition"
	MethodSignatureHelp  = "textDocument/signatureHelp"
	MethodReferences     = "textDocument/references"
	MethodDocumentSymbol = "textDocument/documentSymbol"
	MethodFormatting     = "textDocument/formatting"
	MethodRename         = "textDocument/rename"
	MethodPrepareRename  = "textDocument/prepareRename"
	MethodCodeAction     = "textDocument/codeAction"

	MethodPublishDiagnostics = "textDocument/publishDiagnostics"
	MethodShowMessage        = "window/showMessage"
	MethodLogMessage         = "window/logMessage"
	MethodApplyEdit          = "workspace/applyEdit"
)
