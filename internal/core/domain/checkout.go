package domain

// CheckoutMode names a checkout strategy.
type CheckoutMode string

const (
	// CheckoutModeCustodial settles with the buyer's custodial key through the relayer.
	CheckoutModeCustodial CheckoutMode = "custodial"
	// CheckoutModeVerified accepts a client-signed transfer and verifies its receipt.
	CheckoutModeVerified CheckoutMode = "verified"
)

// Valid reports whether m is a known mode.
func (m CheckoutMode) Valid() bool {
	return m == CheckoutModeCustodial || m == CheckoutModeVerified
}
