package client

const (
	apiPrefix = "/api/chatbases"

	endpointInit    = apiPrefix + "/init"    // GET
	endpointHistory = apiPrefix + "/history" // GET
	endpointChat    = apiPrefix + "/chat"    // POST, streaming

	headerAppID          = "X-App-Id"
	headerAcceptLanguage = "X-Accept-Language"
	headerSessionID      = "X-Session-Id"

	// DefaultServerURL is used when no server URL is configured.
	DefaultServerURL = "https://api.tiein.ai"
	// DefaultLanguage is sent when no language is configured.
	DefaultLanguage = "en-US"
)
