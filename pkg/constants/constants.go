package constants

type contextKey string

const (
	PoolKey         contextKey = "pool"
	TxKey           contextKey = "tx"
	LoggerKey       contextKey = "logger"
	ParamsKey       contextKey = "params"
	RequestStart    contextKey = "request-start"
	AuthenticatedAs contextKey = "authenticated-as"
)
