// Package observability provides metrics and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels shared by the outcome counters.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultInvalid = "invalid"
)

var (
	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// PostMutations counts post writes by operation (create, update, delete).
	PostMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_post_mutations_total",
		Help: "Total number of post mutations by operation",
	}, []string{"operation"})

	// AvatarUploads counts avatar processing attempts by result.
	AvatarUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_avatar_uploads_total",
		Help: "Total number of avatar uploads by result",
	}, []string{"result"})

	// ResetEmails counts password reset emails by result.
	ResetEmails = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_reset_emails_total",
		Help: "Total number of password reset emails by result",
	}, []string{"result"})

	// LoginAttempts counts login attempts by result.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_login_attempts_total",
		Help: "Total number of login attempts by result",
	}, []string{"result"})
)

// RecordPostMutation increments the post mutation counter for the operation.
func RecordPostMutation(operation string) {
	PostMutations.WithLabelValues(operation).Inc()
}

// RecordAvatarUpload increments the avatar upload counter.
func RecordAvatarUpload(err error) {
	AvatarUploads.WithLabelValues(resultOf(err)).Inc()
}

// RecordResetEmail increments the reset email counter.
func RecordResetEmail(err error) {
	ResetEmails.WithLabelValues(resultOf(err)).Inc()
}

func resultOf(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
