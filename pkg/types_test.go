package pkg

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatientInfoLists(t *testing.T) {
	p := PatientInfo{
		Allergies:          "penicillin, sulfa drugs , ",
		CurrentMedications: "none",
	}
	assert.Equal(t, []string{"penicillin", "sulfa drugs"}, p.AllergyList())
	assert.Empty(t, p.MedicationList())

	assert.Empty(t, PatientInfo{}.AllergyList())
}

func TestDrugInteractionUnmarshalObject(t *testing.T) {
	var d DrugInteraction
	require.NoError(t, json.Unmarshal([]byte(`{"drugs": "a + b", "description": "bad"}`), &d))
	assert.Equal(t, "a + b", d.Drugs)
	assert.Equal(t, "bad", d.Description)
}

func TestDrugInteractionUnmarshalString(t *testing.T) {
	var d DrugInteraction
	require.NoError(t, json.Unmarshal([]byte(`"a and b interact"`), &d))
	assert.Empty(t, d.Drugs)
	assert.Equal(t, "a and b interact", d.Description)
}

func TestSoapNoteStates(t *testing.T) {
	assert.True(t, SoapNote{Error: "x"}.Failed())
	assert.False(t, SoapNote{Subjective: "s"}.Failed())
	assert.True(t, SoapNote{}.Empty())
	assert.False(t, SoapNote{Plan: "p"}.Empty())
}

func TestDrugConflictReportJSONRoundTripKeys(t *testing.T) {
	r := DrugConflictReport{
		AllergyWarnings:   []string{},
		DrugInteractions:  []DrugInteraction{},
		Contraindications: []string{},
		DosageWarnings:    []string{},
		Recommendations:   []string{},
		Severity:          SeverityNone,
	}
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var keys map[string]any
	require.NoError(t, json.Unmarshal(data, &keys))
	for _, k := range []string{"has_conflicts", "allergy_warnings", "drug_interactions",
		"contraindications", "dosage_warnings", "recommendations", "severity"} {
		assert.Contains(t, keys, k)
	}
	assert.NotContains(t, keys, "error", "error key is omitted on success records")
}
