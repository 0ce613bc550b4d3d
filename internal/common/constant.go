package common

// SetupTokenHeaderName carries the one-time setup credential.
const SetupTokenHeaderName = "X-Setup-Token"

// Fixed key names inside the Secrets namespace.
const (
	InitializedFlagKey = "setup:initialized"
	OAuthTokenPrefix   = "oauth:"
	KDFSaltKey         = "crypto:salt"
)

// Key prefixes inside the Sessions and Audit namespaces.
const (
	OAuthStatePrefix = "oauth_state:"
	SessionPrefix    = "session:"
	InboundPrefix    = "inbound:"
	DeliveryPrefix   = "delivery:"
	AuditPrefix      = "audit:"
)

// ReservedSecretPrefixes may not be written through bulk setup.
var ReservedSecretPrefixes = []string{"setup:", OAuthTokenPrefix, "crypto:"}
