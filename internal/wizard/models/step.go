package models

// Step names a wizard state. The concrete order comes from the flow topology.
type Step string

const (
	StepVerification Step = "verification"
	StepForm         Step = "form"
	StepDocuments    Step = "documents"
	StepPreview      Step = "preview"
	StepSubmitted    Step = "submitted"
)

// Substep splits the verification step into its two OTP phases.
type Substep string

const (
	SubstepRequestOTP Substep = "request_otp"
	SubstepConfirmOTP Substep = "confirm_otp"
)

// Operation names one of the asynchronous suspension points.
type Operation string

const (
	OpRequestOTP Operation = "request_otp"
	OpConfirmOTP Operation = "confirm_otp"
	OpEncodeFile Operation = "encode_file"
	OpSubmit     Operation = "submit"
)
