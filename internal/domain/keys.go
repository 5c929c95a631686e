package domain

type CtxKey string

const (
	KeyUserID        CtxKey = "UserID"
	KeyUserEmail     CtxKey = "Email"
	KeyClientSession CtxKey = "ClientSession"
	KeySession       CtxKey = "Session"
)
