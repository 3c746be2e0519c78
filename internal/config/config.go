package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	// Credential authenticator.
	LockoutThreshold int
	LockoutDuration  time.Duration

	// MFA challenge issuer.
	OTPLength      int
	OTPExpiry      time.Duration
	OTPMaxAttempts int
	ResendCooldown time.Duration

	// Identity proofing.
	EvaluatorURL     string
	EvaluatorTimeout time.Duration
	MaxImageBytes    int64
	MinImageWidth    int
	MinImageHeight   int

	// Fraud analytics.
	AggregationInterval time.Duration

	// Ballot catalog served to clients.
	Candidates []string
	Precincts  []string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion string

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Accounts      string
	VoterRoll     string
	Challenges    string
	Verifications string
	Votes         string
	Tallies       string
	Events        string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Accounts:      getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
			VoterRoll:     getEnv("DYNAMO_TABLE_VOTER_ROLL", "voter_roll"),
			Challenges:    getEnv("DYNAMO_TABLE_CHALLENGES", "mfa_challenges"),
			Verifications: getEnv("DYNAMO_TABLE_VERIFICATIONS", "identity_verifications"),
			Votes:         getEnv("DYNAMO_TABLE_VOTES", "votes"),
			Tallies:       getEnv("DYNAMO_TABLE_TALLIES", "precinct_tallies"),
			Events:        getEnv("DYNAMO_TABLE_EVENTS", "security_events"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "election-fraud-reports"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", time.Hour),

		LockoutThreshold: getEnvInt("LOCKOUT_THRESHOLD", 5),
		LockoutDuration:  getEnvDuration("LOCKOUT_DURATION", 30*time.Minute),

		OTPLength:      getEnvInt("OTP_LENGTH", 4),
		OTPExpiry:      getEnvDuration("OTP_EXPIRY", 10*time.Minute),
		OTPMaxAttempts: getEnvInt("OTP_MAX_ATTEMPTS", 5),
		ResendCooldown: getEnvDuration("OTP_RESEND_COOLDOWN", time.Minute),

		EvaluatorURL:     getEnv("EVALUATOR_URL", "http://localhost:8090/evaluate"),
		EvaluatorTimeout: getEnvDuration("EVALUATOR_TIMEOUT", 15*time.Second),
		MaxImageBytes:    int64(getEnvInt("MAX_IMAGE_BYTES", 5*1024*1024)),
		MinImageWidth:    getEnvInt("MIN_IMAGE_WIDTH", 200),
		MinImageHeight:   getEnvInt("MIN_IMAGE_HEIGHT", 200),

		AggregationInterval: getEnvDuration("AGGREGATION_INTERVAL", 30*time.Second),

		Candidates: strings.Split(getEnv("CANDIDATES", "Candidate A,Candidate B"), ","),
		Precincts:  strings.Split(getEnv("PRECINCTS", "Precinct 1,Precinct 2,Precinct 3"), ","),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "election-system@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion: getEnv("SNS_REGION", "us-east-1"),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
