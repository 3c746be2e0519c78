package domain

import "time"

// Identity verification outcomes.
const (
	OutcomeGenuine  = "genuine"
	OutcomeRejected = "rejected"
)

// Fraud indicator tags attached to verification attempts. Values are wire
// format and must stay stable.
const (
	IndicatorNoFace        = "no_face_detected"
	IndicatorMultipleFaces = "multiple_faces_detected"
	IndicatorLowLiveness   = "liveness_below_threshold"
	IndicatorFaceMismatch  = "face_mismatch"
	IndicatorImageTooSmall = "image_too_small"
	IndicatorDetectorError = "detector_error"
)

// IdentityVerificationRecord is the durable outcome of one proofing attempt.
// Records are immutable once written; the most recent genuine record for an
// account is authoritative for the account's verified flag.
type IdentityVerificationRecord struct {
	RecordID       string    `json:"id" dynamodbav:"record_id"`
	AccountID      string    `json:"account_id" dynamodbav:"account_id"`
	LivenessScore  float64   `json:"liveness_score" dynamodbav:"liveness_score"`
	FaceConfidence float64   `json:"face_match_confidence" dynamodbav:"face_confidence"`
	Outcome        string    `json:"outcome" dynamodbav:"outcome"`
	Indicators     []string  `json:"fraud_indicators" dynamodbav:"indicators"`
	CameraSource   string    `json:"camera_source" dynamodbav:"camera_source"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
}
