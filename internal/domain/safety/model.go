package safety

// Finding severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Finding is a single safety check result. Only the fields relevant to the
// producing check are populated.
type Finding struct {
	Type               string     `json:"type"`
	Severity           string     `json:"severity"`
	Message            string     `json:"message"`
	Drug               string     `json:"drug,omitempty"`
	DrugClass          string     `json:"drug_class,omitempty"`
	Drugs              [][]string `json:"drugs,omitempty"`
	Contraindication   string     `json:"contraindication,omitempty"`
	Population         string     `json:"population,omitempty"`
	Reason             string     `json:"reason,omitempty"`
	Risk               string     `json:"risk,omitempty"`
	Alternative        string     `json:"alternative,omitempty"`
	Action             string     `json:"action,omitempty"`
	ImmediateAction    []string   `json:"immediate_action,omitempty"`
	Symptoms           []string   `json:"symptoms,omitempty"`
	SymptomsToCheck    []string   `json:"symptoms_to_check,omitempty"`
	SymptomsToMonitor  []string   `json:"symptoms_to_monitor,omitempty"`
	Considerations     []string   `json:"considerations,omitempty"`
	Evidence           string     `json:"evidence,omitempty"`
	RequiresReferral   bool       `json:"requires_referral,omitempty"`
	ReferralDepartment string     `json:"referral_department,omitempty"`
}

// CheckResult groups all findings of one safety evaluation.
// IsSafe is false exactly when any bucket holds a critical finding.
type CheckResult struct {
	IsSafe            bool      `json:"is_safe"`
	Warnings          []Finding `json:"warnings"`
	Contraindications []Finding `json:"contraindications"`
	Interactions      []Finding `json:"interactions"`
	EmergencyAlerts   []Finding `json:"emergency_alerts"`
}

func (r *CheckResult) allFindings() []Finding {
	out := make([]Finding, 0, len(r.Warnings)+len(r.Contraindications)+len(r.Interactions)+len(r.EmergencyAlerts))
	out = append(out, r.Warnings...)
	out = append(out, r.Contraindications...)
	out = append(out, r.Interactions...)
	out = append(out, r.EmergencyAlerts...)
	return out
}
