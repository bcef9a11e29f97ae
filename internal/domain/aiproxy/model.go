package aiproxy

import "strings"

const (
	predictionDisclaimer = "This AI analysis is for educational purposes only and should not replace professional medical advice. Always consult with a qualified healthcare provider for proper diagnosis and treatment."
	symptomDisclaimer    = "This AI analysis is for informational purposes only and should not replace professional medical advice. Please consult with a healthcare professional for proper diagnosis and treatment."
	verifyDisclaimer     = "This AI-assisted analysis is for informational purposes only and should not replace professional medical advice. Always consult with a healthcare professional for proper diagnosis and treatment."
)

// Urgency tiers of TreatmentInfo.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// TreatmentInfo is the guidance attached to a classifier prediction.
type TreatmentInfo struct {
	Description string   `json:"description"`
	Treatment   string   `json:"treatment"`
	Urgency     string   `json:"urgency"`
	NextSteps   []string `json:"next_steps"`
}

var treatmentTable = map[string]TreatmentInfo{
	"melanoma": {
		Description: "A serious form of skin cancer that develops in pigment-producing cells.",
		Treatment:   "Surgical excision by a specialist; further therapy depends on staging.",
		Urgency:     UrgencyHigh,
		NextSteps: []string{
			"See a dermatologist or oncologist as soon as possible",
			"Avoid sun exposure on the affected area",
			"Photograph the lesion to track changes",
		},
	},
	"basal cell carcinoma": {
		Description: "A common, slow-growing skin cancer that rarely spreads.",
		Treatment:   "Excision, curettage or topical therapy prescribed by a dermatologist.",
		Urgency:     UrgencyHigh,
		NextSteps: []string{
			"Book a dermatology appointment within two weeks",
			"Use broad-spectrum sunscreen daily",
		},
	},
	"actinic keratoses": {
		Description: "Rough, scaly patches caused by years of sun exposure that can become cancerous.",
		Treatment:   "Cryotherapy or prescription creams.",
		Urgency:     UrgencyMedium,
		NextSteps: []string{
			"Have the patch examined by a doctor",
			"Limit sun exposure and wear protective clothing",
		},
	},
	"benign keratosis-like lesions": {
		Description: "Non-cancerous growths such as seborrheic keratoses or solar lentigines.",
		Treatment:   "Usually none; removal is optional for comfort or appearance.",
		Urgency:     UrgencyLow,
		NextSteps: []string{
			"Monitor for changes in size, colour or shape",
			"Consult a doctor if the lesion bleeds or itches",
		},
	},
	"dermatofibroma": {
		Description: "A firm, harmless bump in the skin, often on the legs.",
		Treatment:   "No treatment needed; can be removed surgically if bothersome.",
		Urgency:     UrgencyLow,
		NextSteps: []string{
			"Monitor the bump",
			"Seek care if it grows quickly or becomes painful",
		},
	},
	"melanocytic nevi": {
		Description: "Common moles formed by clusters of pigment cells.",
		Treatment:   "No treatment needed for typical moles.",
		Urgency:     UrgencyLow,
		NextSteps: []string{
			"Check moles monthly for asymmetry, border, colour and diameter changes",
			"See a doctor if a mole changes",
		},
	},
	"vascular lesions": {
		Description: "Abnormalities of blood vessels in the skin such as cherry angiomas.",
		Treatment:   "Often none; laser therapy is available for cosmetic reasons.",
		Urgency:     UrgencyLow,
		NextSteps: []string{
			"Monitor for bleeding or rapid growth",
		},
	},
	"eczema": {
		Description: "An inflammatory condition causing dry, itchy and red skin.",
		Treatment:   "Moisturisers, mild soaps and topical corticosteroids when prescribed.",
		Urgency:     UrgencyMedium,
		NextSteps: []string{
			"Moisturise twice daily",
			"Avoid known irritants",
			"See a doctor if the skin weeps or shows signs of infection",
		},
	},
	"psoriasis": {
		Description: "A chronic autoimmune condition producing thick, scaly plaques.",
		Treatment:   "Topical treatments, phototherapy or systemic medication under supervision.",
		Urgency:     UrgencyMedium,
		NextSteps: []string{
			"Consult a dermatologist for a treatment plan",
			"Keep skin moisturised",
		},
	},
	"fungal infection": {
		Description: "A skin infection such as ringworm caused by fungi.",
		Treatment:   "Antifungal creams; oral antifungals for extensive infection.",
		Urgency:     UrgencyMedium,
		NextSteps: []string{
			"Keep the area clean and dry",
			"Do not share towels or clothing",
			"See a doctor if it spreads after two weeks of treatment",
		},
	},
}

var genericTreatment = TreatmentInfo{
	Description: "The detected condition is not in the reference list.",
	Treatment:   "Consult a healthcare provider for an accurate diagnosis and treatment plan.",
	Urgency:     UrgencyMedium,
	NextSteps: []string{
		"Schedule an appointment with a doctor or dermatologist",
		"Keep the affected area clean",
		"Seek immediate care if symptoms worsen",
	},
}

// TreatmentFor looks up label case-insensitively and falls back to generic
// guidance.
func TreatmentFor(label string) TreatmentInfo {
	if info, ok := treatmentTable[strings.ToLower(strings.TrimSpace(label))]; ok {
		return info
	}
	return genericTreatment
}

// SymptomInput is the body of POST /symptom-predict.
type SymptomInput struct {
	Symptoms string `json:"symptoms"`
	Language string `json:"language"`
}

type SymptomResult struct {
	Success        bool   `json:"success"`
	Diagnosis      string `json:"diagnosis"`
	IsCritical     bool   `json:"is_critical"`
	Language       string `json:"language"`
	EnglishVersion string `json:"english_version"`
	Timestamp      string `json:"timestamp"`
	Disclaimer     string `json:"disclaimer"`
}

// VerifyInput is the body of POST /disease-verify.
type VerifyInput struct {
	Prediction string   `json:"prediction"`
	Confidence *float64 `json:"confidence"`
	ImageURL   string   `json:"image_url"`
}

type VerifyResult struct {
	Success            bool     `json:"success"`
	Verified           bool     `json:"verified"`
	OriginalPrediction string   `json:"original_prediction"`
	OriginalConfidence *float64 `json:"original_confidence"`
	Analysis           string   `json:"gemini_analysis"`
	RequiresTreatment  bool     `json:"medical_treatment_required"`
	Severity           string   `json:"severity_level"`
	Timestamp          string   `json:"timestamp"`
	Disclaimer         string   `json:"disclaimer"`
}

// SpeechInput is the body of POST /text-to-speech.
type SpeechInput struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

type SpeechResult struct {
	Success   bool   `json:"success"`
	Audio     string `json:"audio"`
	Timestamp string `json:"timestamp"`
}

// ImageCheck is the outcome of the group-photo pre-check.
type ImageCheck struct {
	Success       bool   `json:"success"`
	ContainsGroup bool   `json:"containsGroup"`
	Error         string `json:"error,omitempty"`
}
