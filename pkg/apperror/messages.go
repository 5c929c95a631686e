package apperror

import "net/http"

// Identity provider error codes understood by the lookup table.
const (
	CodeUserNotFound        = "auth/user-not-found"
	CodeWrongPassword       = "auth/wrong-password"
	CodeInvalidEmail        = "auth/invalid-email"
	CodeEmailInUse          = "auth/email-already-in-use"
	CodeWeakPassword        = "auth/weak-password"
	CodeTooManyRequests     = "auth/too-many-requests"
	CodePopupClosed         = "auth/popup-closed-by-user"
	CodeCancelledPopup      = "auth/cancelled-popup-request"
	CodeNetworkFailed       = "auth/network-request-failed"
	CodeInvalidActionCode   = "auth/invalid-action-code"
	CodeOperationNotAllowed = "auth/operation-not-allowed"
	CodeInternal            = "auth/internal-error"
)

// Inline messages shared by the editors and the session manager.
const (
	MsgUnexpected        = "Ocurrió un error inesperado. Intenta nuevamente."
	MsgStorageFailed     = "No se pudo subir la imagen. Intenta nuevamente."
	MsgPersistenceFailed = "No se pudieron guardar los cambios. Intenta nuevamente."
	MsgDocumentNotFound  = "El registro ya no existe."
	MsgSessionRequired   = "Inicia sesión para continuar."
)

var authMessages = map[string]string{
	CodeUserNotFound:        "No existe una cuenta con este correo.",
	CodeWrongPassword:       "La contraseña es incorrecta.",
	CodeInvalidEmail:        "El formato del correo no es válido.",
	CodeEmailInUse:          "Ya existe una cuenta con este correo.",
	CodeWeakPassword:        "La contraseña debe tener al menos 6 caracteres.",
	CodeTooManyRequests:     "Demasiados intentos fallidos. Intenta más tarde.",
	CodePopupClosed:         "Se canceló el inicio de sesión con Google.",
	CodeCancelledPopup:      "Error al iniciar con Google.",
	CodeNetworkFailed:       "Error de red. Revisa tu conexión e intenta nuevamente.",
	CodeInvalidActionCode:   "El enlace para restablecer la contraseña no es válido o ya expiró.",
	CodeOperationNotAllowed: "Este método de inicio de sesión no está habilitado.",
}

// AuthMessage translates a provider error code into the user-facing message.
// Unknown codes get the generic fallback.
func AuthMessage(code string) string {
	if msg, ok := authMessages[code]; ok {
		return msg
	}
	return MsgUnexpected
}

func authStatus(code string) int {
	switch code {
	case CodeInvalidEmail, CodeWeakPassword, CodeInvalidActionCode:
		return http.StatusBadRequest
	case CodeUserNotFound, CodeWrongPassword, CodePopupClosed, CodeCancelledPopup:
		return http.StatusUnauthorized
	case CodeEmailInUse:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeNetworkFailed:
		return http.StatusBadGateway
	case CodeOperationNotAllowed:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
