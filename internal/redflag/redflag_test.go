package redflag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/curasense/triage-cli/internal/model"
)

func TestNew_MergesAndDedups(t *testing.T) {
	d := New([]model.ConditionRecord{
		{Name: "Stroke", RedFlags: []string{"Slurred Speech", "face drooping", ""}},
		{Name: "Meningitis", RedFlags: []string{"stiff neck", "face drooping"}},
	})

	phrases := d.Phrases()
	assert.Len(t, phrases, len(BasePhrases)+2)
	assert.Equal(t, BasePhrases[0], phrases[0])
	assert.Equal(t, "face drooping", phrases[len(BasePhrases)])
	assert.Equal(t, "stiff neck", phrases[len(BasePhrases)+1])
}

func TestCheck(t *testing.T) {
	d := New([]model.ConditionRecord{{Name: "Meningitis", RedFlags: []string{"stiff neck"}}})

	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "empty", text: "   ", want: nil},
		{name: "no match", text: "mild headache and runny nose", want: nil},
		{name: "base phrase", text: "Sudden CHEST PAIN after running", want: []string{"chest pain"}},
		{name: "kb phrase", text: "fever and a stiff neck", want: []string{"stiff neck"}},
		{name: "overlapping", text: "my baby not breathing", want: []string{"not breathing", "baby not breathing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Check(tt.text))
		})
	}
}
