package notify

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
)

func TestRunCompletedData(t *testing.T) {
	fitness := 4321.5
	run := &domain.OptimizationRun{
		ID:           uuid.MustParse("0b6a3f0e-8d55-4a8f-9e0c-1f2f3a4b5c6d"),
		DisasterType: "inundacion",
		Status:       domain.RunCompleted,
		BestFitness:  &fitness,
		Result: &domain.OptimizationResult{
			MejoresSoluciones: []domain.Solution{
				{Resumen: domain.SolutionSummary{Cobertura: 0.75, PoblacionBeneficiada: 1800}},
			},
		},
	}

	data := RunCompletedData(run)
	assert.Equal(t, "0b6a3f0e-8d55-4a8f-9e0c-1f2f3a4b5c6d", data.RunID)
	assert.Equal(t, "completed", data.Status)
	assert.Equal(t, 4321.5, data.BestFitness)
	assert.Equal(t, 0.75, data.Coverage)
	assert.Equal(t, 1800, data.BeneficiaryPopulation)
}

func TestRenderRunCompleted(t *testing.T) {
	subject, body, err := Render(&domain.MailMessage{
		Type: MailTypeRunCompleted,
		To:   "ops@example.org",
		Data: domain.RunCompletedMailData{
			RunID:                 "abc",
			DisasterType:          "sismo",
			Status:                "completed",
			BestFitness:           1234.567,
			Coverage:              0.8,
			BeneficiaryPopulation: 950,
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, subject)
	assert.Contains(t, body, "sismo")
	assert.Contains(t, body, "1234.57")
	assert.Contains(t, body, "80%")
	assert.Contains(t, body, "950")
	assert.Contains(t, body, "/optimizations/abc")
}

func TestRenderFailedRunShowsError(t *testing.T) {
	_, body, err := Render(&domain.MailMessage{
		Type: MailTypeRunCompleted,
		Data: domain.RunCompletedMailData{
			RunID:        "abc",
			Status:       "failed",
			ErrorMessage: "EngineFailure: 优化引擎内部错误",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, body, "优化引擎内部错误")
	assert.NotContains(t, body, "受益人口")
}

func TestRenderUnsupportedType(t *testing.T) {
	_, _, err := Render(&domain.MailMessage{Type: "reset_password"})
	var unsupported *UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "reset_password", unsupported.Type)
}
