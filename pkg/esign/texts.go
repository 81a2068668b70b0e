package esign

// Texts holds the copy of the signature modal.
type Texts struct {
	PricingTitle   string `json:"pricingTitle"`
	ContinueButton string `json:"continueButton"`
	DialogTitle    string `json:"dialogTitle"`
	ConfirmButton  string `json:"confirmButton"`
	SuccessTitle   string `json:"successTitle"`
	SuccessMessage string `json:"successMessage"`
	ErrorTitle     string `json:"errorTitle"`
	ErrorMessage   string `json:"errorMessage"`
	CloseButton    string `json:"closeButton"`
	RetryButton    string `json:"retryButton"`
	TermsLink      string `json:"termsLink"`
	ConsentLabel   string `json:"consentLabel"`
	Placeholder    string `json:"placeholder"`
}

func DefaultTexts() Texts {
	return Texts{
		PricingTitle:   "Pricing",
		ContinueButton: "Continue",
		DialogTitle:    "E-Signature Agreement",
		ConfirmButton:  "Confirm and Generate PDF",
		SuccessTitle:   "Submitted!",
		SuccessMessage: "Your agreement has been recorded and a PDF has been generated.",
		ErrorTitle:     "Error",
		ErrorMessage:   "An error occurred while processing your submission. Please try again.",
		CloseButton:    "Close",
		RetryButton:    "Try Again",
		TermsLink:      "Read the terms and conditions",
		ConsentLabel:   "I agree to the terms and conditions",
		Placeholder:    "First and Last Name",
	}
}
