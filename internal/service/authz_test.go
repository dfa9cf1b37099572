package service

import (
	"testing"

	"quill/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestAuthorizeOwner(t *testing.T) {
	owner := &models.User{ID: 1}
	other := &models.User{ID: 2}
	post := &models.Post{ID: 10, UserID: 1}

	tests := []struct {
		name      string
		principal *models.User
		post      *models.Post
		allowed   bool
	}{
		{"owner", owner, post, true},
		{"other user", other, post, false},
		{"anonymous", nil, post, false},
		{"missing post", owner, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AuthorizeOwner(tt.principal, tt.post)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, models.CodeForbidden, models.CodeOf(err))
			}
		})
	}
}
