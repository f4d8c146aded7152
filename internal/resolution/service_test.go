package resolution

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wren/internal/logger"
	"wren/pkg/errors"
	"wren/pkg/models"
)

func boundParams() models.ParameterSet {
	return models.ParameterSet{
		"extensions.resource_id":    "widget-main",
		"extensions.repo_key":       "github.com/acme/widget",
		"extensions.targets.build":  "github-go-app-build-default",
		"extensions.targets.review": "github-go-app-review",
		"body.repository.url":       "https://github.com/acme/widget.git",
		"body.revision":             "abc123",
		"body.branch":               "feature/login",
		"body.target_branch":        "main",
	}
}

func TestService_Resolve_SelectsTargetByCategory(t *testing.T) {
	svc := NewService(logger.NopLogger())

	tests := []struct {
		name       string
		category   models.Category
		wantTarget string
		wantBranch string
	}{
		{
			name:       "build category selects the build target",
			category:   models.CategoryBuild,
			wantTarget: "github-go-app-build-default",
			wantBranch: "feature/login",
		},
		{
			name:       "review category selects the review target",
			category:   models.CategoryReview,
			wantTarget: "github-go-app-review",
			wantBranch: "feature/login",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request, err := svc.Resolve(context.Background(),
				models.ClassificationResult{Category: tt.category}, boundParams())
			require.NoError(t, err)

			assert.Equal(t, tt.wantTarget, request.Target)
			assert.Equal(t, map[string]string{
				models.LabelResource: "widget-main",
				models.LabelCategory: tt.category.String(),
				models.LabelBranch:   tt.wantBranch,
			}, request.Labels)
		})
	}
}

func TestService_Resolve_CarriesFullParameterSet(t *testing.T) {
	svc := NewService(logger.NopLogger())
	params := boundParams()

	request, err := svc.Resolve(context.Background(),
		models.ClassificationResult{Category: models.CategoryBuild}, params)
	require.NoError(t, err)

	assert.Equal(t, map[string]string(params), request.Parameters)

	// The request must not alias the binder's map.
	params["body.extra"] = "later"
	assert.NotContains(t, request.Parameters, "body.extra")
}

func TestService_Resolve_MissingTargetFails(t *testing.T) {
	svc := NewService(logger.NopLogger())
	params := boundParams()
	delete(params, "extensions.targets.review")

	_, err := svc.Resolve(context.Background(),
		models.ClassificationResult{Category: models.CategoryReview}, params)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNoTargetConfigured))
	assert.True(t, errors.IsResolutionError(err))
	assert.Equal(t, http.StatusInternalServerError, errors.ToHTTPStatus(err))
}

func TestService_Resolve_EmptyTargetFails(t *testing.T) {
	svc := NewService(logger.NopLogger())
	params := boundParams()
	params["extensions.targets.build"] = ""

	_, err := svc.Resolve(context.Background(),
		models.ClassificationResult{Category: models.CategoryBuild}, params)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNoTargetConfigured))
}
