package dedup

const keyPrefix = "imaged:dedup:"

// FingerprintKey holds the job id for a fingerprint.
func FingerprintKey(fp string) string { return keyPrefix + "fp:" + fp }

// JobKey holds the fingerprint registered by a job.
func JobKey(jobID string) string { return keyPrefix + "job:" + jobID }
