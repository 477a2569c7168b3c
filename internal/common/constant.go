package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// ResetConfirmation is the literal a caller must send to wipe the vault.
const ResetConfirmation = "RESET"

// MinPasswordLength is the shortest password accepted for setup and rotation.
const MinPasswordLength = 8
