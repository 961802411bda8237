// Package errors provides structured error handling for the stat engine.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Validation errors
	CodeContributionInvalid Code = "CONTRIBUTION_INVALID"
	CodeConfigInvalid       Code = "CONFIG_INVALID"

	// Processing errors
	CodeBucketUnknown       Code = "BUCKET_UNKNOWN"
	CodeBucketDuplicate     Code = "BUCKET_DUPLICATE"
	CodeCapConflict         Code = "CAP_CONFLICT"
	CodeCapLayerUnknown     Code = "CAP_LAYER_UNKNOWN"
	CodeAllSubsystemsFailed Code = "ALL_SUBSYSTEMS_FAILED"
	CodePolicyInvalid       Code = "POLICY_INVALID"

	// Registry errors
	CodeSubsystemDuplicate Code = "SUBSYSTEM_DUPLICATE"
	CodeSubsystemUnknown   Code = "SUBSYSTEM_UNKNOWN"
	CodeSubsystemInvalid   Code = "SUBSYSTEM_INVALID"

	// Cache errors
	CodeCacheUnavailable Code = "CACHE_UNAVAILABLE"
)
