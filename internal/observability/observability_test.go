package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAvatarUpload(t *testing.T) {
	before := testutil.ToFloat64(AvatarUploads.WithLabelValues(ResultFailure))
	RecordAvatarUpload(errors.New("decode failed"))
	assert.Equal(t, before+1, testutil.ToFloat64(AvatarUploads.WithLabelValues(ResultFailure)))

	before = testutil.ToFloat64(AvatarUploads.WithLabelValues(ResultSuccess))
	RecordAvatarUpload(nil)
	assert.Equal(t, before+1, testutil.ToFloat64(AvatarUploads.WithLabelValues(ResultSuccess)))
}

func TestRecordPostMutation(t *testing.T) {
	before := testutil.ToFloat64(PostMutations.WithLabelValues("create"))
	RecordPostMutation("create")
	assert.Equal(t, before+1, testutil.ToFloat64(PostMutations.WithLabelValues("create")))
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "quill-test"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	ctx, finish := StartSpan(context.Background(), "test", "noop")
	assert.NotNil(t, ctx)
	finish(errors.New("boom"))
}
