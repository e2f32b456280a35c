package common

// AuthHeaderName is the HTTP header used to carry the bearer credential on
// outbound requests and on the websocket handshake.
const AuthHeaderName = "Authorization"

// BearerPrefix is prepended to the credential in AuthHeaderName.
const BearerPrefix = "Bearer "
