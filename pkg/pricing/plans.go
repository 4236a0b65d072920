package pricing

// Feature identifies a gated product capability
type Feature string

const (
	FeatureUnlimitedNotes Feature = "unlimited_notes"
	FeatureUnlimitedOCR   Feature = "unlimited_ocr"
	FeatureExport         Feature = "export"
	FeatureCloudSync      Feature = "cloud_sync"
)

const (
	freeNotesLimit = 50
	freeOCRLimit   = 10
)

// LimitsFor returns the limits attached to a plan.
// Unknown plans get the free limits.
func LimitsFor(plan Plan) PlanLimits {
	switch plan {
	case PlanLifetime:
		return PlanLimits{
			Plan:           PlanLifetime,
			NotesLimit:     UnlimitedLimit,
			OCRLimit:       UnlimitedLimit,
			IsEarlyAdopter: true,
		}
	case PlanPro:
		return PlanLimits{
			Plan:           PlanPro,
			NotesLimit:     UnlimitedLimit,
			OCRLimit:       UnlimitedLimit,
			IsEarlyAdopter: false,
		}
	default:
		return PlanLimits{
			Plan:           PlanFree,
			NotesLimit:     freeNotesLimit,
			OCRLimit:       freeOCRLimit,
			IsEarlyAdopter: false,
		}
	}
}

// HasFeature reports whether a plan includes a feature
func HasFeature(plan Plan, feature Feature) bool {
	switch feature {
	case FeatureUnlimitedNotes, FeatureUnlimitedOCR:
		return plan == PlanLifetime || plan == PlanPro
	case FeatureExport:
		return plan != PlanFree
	case FeatureCloudSync:
		return plan == PlanPro
	default:
		return false
	}
}

// FormatPlanName returns the display name for a plan
func FormatPlanName(plan Plan) string {
	switch plan {
	case PlanLifetime:
		return "Lifetime"
	case PlanPro:
		return "Pro"
	default:
		return "Free"
	}
}
