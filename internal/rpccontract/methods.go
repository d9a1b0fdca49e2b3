package rpccontract

const (
	ServiceName = "noose.v1.NooseService"
)

const (
	MethodGetHealth      = "/" + ServiceName + "/GetHealth"
	MethodListAgents     = "/" + ServiceName + "/ListAgents"
	MethodGetAgent       = "/" + ServiceName + "/GetAgent"
	MethodCreateAgent    = "/" + ServiceName + "/CreateAgent"
	MethodListAccidents  = "/" + ServiceName + "/ListAccidents"
	MethodCreateAccident = "/" + ServiceName + "/CreateAccident"
	MethodGetProfile     = "/" + ServiceName + "/GetProfile"
	MethodGetDailyQuote  = "/" + ServiceName + "/GetDailyQuote"
	MethodGetActivePopup = "/" + ServiceName + "/GetActivePopup"
	MethodGetLeaderboard = "/" + ServiceName + "/GetLeaderboard"
	MethodGetDashboard   = "/" + ServiceName + "/GetDashboard"
)

// WriteMethods insert rows. Clients never retry them.
var WriteMethods = map[string]struct{}{
	MethodCreateAgent:    {},
	MethodCreateAccident: {},
}

func IsWrite(method string) bool {
	_, ok := WriteMethods[method]
	return ok
}
