package domainerrors

import "net/http"

// ToHTTPStatus maps a domain error code to the HTTP status the transport
// layer should respond with. Unknown codes map to 500.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeUnauthorized, CodeNotVerified:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyRegistered, CodeAlreadyListed, CodeConflict,
		CodeNotActive, CodeStaleListing, CodeMetadataLocked,
		CodeSettlementFailed:
		return http.StatusConflict
	case CodeExpired:
		return http.StatusGone
	case CodeInsufficientPayment:
		return http.StatusPaymentRequired
	case CodeInvalidArgument, CodeInvalidRoyalty, CodeInvalidPrice,
		CodeSelfTransfer, CodeBadRequest:
		return http.StatusBadRequest
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
