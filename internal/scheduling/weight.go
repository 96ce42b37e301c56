package scheduling

// estimateCap clamps runaway estimates before classification, so the weight
// saturates at the top tier.
const estimateCap = 10000

// WeightFromEstimate maps a tenant's monthly order estimate onto the weight
// classes {1,2,3}. Monotonic non-decreasing step function; zero or negative
// estimates land in the lightest class.
func WeightFromEstimate(monthlyOrdersEstimate int) int {
	if monthlyOrdersEstimate > estimateCap {
		monthlyOrdersEstimate = estimateCap
	}
	switch {
	case monthlyOrdersEstimate <= 2000:
		return 1
	case monthlyOrdersEstimate <= 5000:
		return 2
	default:
		return 3
	}
}
