package safety

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cdss/cdss/internal/domain/patient"
	"github.com/cdss/cdss/internal/domain/risk"
)

// Guard runs medication and vital-sign safety checks against a patient
// profile and an optional list of treatment recommendations. It holds only
// static tables and is safe for concurrent use.
type Guard struct {
	log zerolog.Logger
}

func NewGuard(log zerolog.Logger) *Guard {
	return &Guard{log: log}
}

// CheckAll runs every safety check and groups findings into four buckets.
// recommendations may be nil.
func (g *Guard) CheckAll(profile *patient.Profile, recommendations []risk.Recommendation) *CheckResult {
	g.log.Info().Str("patient_id", profile.PatientID).Msg("开始安全检查")

	result := &CheckResult{
		IsSafe:            true,
		Warnings:          []Finding{},
		Contraindications: []Finding{},
		Interactions:      []Finding{},
		EmergencyAlerts:   []Finding{},
	}

	result.Contraindications = append(result.Contraindications, g.checkPregnancyContraindications(profile, recommendations)...)
	result.EmergencyAlerts = append(result.EmergencyAlerts, g.checkHypertensiveEmergency(profile)...)
	result.Contraindications = append(result.Contraindications, g.checkDrugContraindications(profile)...)
	result.Interactions = append(result.Interactions, g.checkDrugInteractions(profile)...)
	result.Warnings = append(result.Warnings, g.checkSpecialPopulation(profile)...)
	result.EmergencyAlerts = append(result.EmergencyAlerts, g.checkGlucoseEmergency(profile)...)

	all := result.allFindings()
	criticalCount := 0
	for _, f := range all {
		if f.Severity == SeverityCritical {
			criticalCount++
		}
	}
	result.IsSafe = criticalCount == 0

	g.log.Info().
		Str("patient_id", profile.PatientID).
		Int("findings", len(all)).
		Int("critical", criticalCount).
		Bool("is_safe", result.IsSafe).
		Msg("安全检查完成")
	return result
}

func (g *Guard) checkPregnancyContraindications(profile *patient.Profile, recommendations []risk.Recommendation) []Finding {
	var warnings []Finding

	if !isPregnant(profile) {
		return warnings
	}

	acei := classByName("ACEI类")
	arb := classByName("ARB类")

	for _, med := range profile.Medications {
		name := strings.ToLower(med.DrugName)

		if matchesDrug(name, acei.drugs, aceiNameFragments) {
			warnings = append(warnings, Finding{
				Type:        "pregnancy_contraindication",
				Severity:    SeverityCritical,
				Drug:        name,
				DrugClass:   "ACEI类",
				Message:     fmt.Sprintf("⚠️ 严重警告：孕妇禁用ACEI类药物（%s）！", name),
				Reason:      "ACEI类药物可导致胎儿畸形、羊水过少、胎儿肾功能损害",
				Alternative: "建议使用甲基多巴、拉贝洛尔或硝苯地平缓释片",
				Action:      "立即停用该药物，建议产科会诊",
				Evidence:    "中国高血压防治指南2023",
			})
		}

		if matchesDrug(name, arb.drugs, arbNameFragments) {
			warnings = append(warnings, Finding{
				Type:        "pregnancy_contraindication",
				Severity:    SeverityCritical,
				Drug:        name,
				DrugClass:   "ARB类",
				Message:     fmt.Sprintf("⚠️ 严重警告：孕妇禁用ARB类药物（%s）！", name),
				Reason:      "ARB类药物可导致胎儿畸形、羊水过少、胎儿肾功能损害",
				Alternative: "建议使用甲基多巴、拉贝洛尔或硝苯地平缓释片",
				Action:      "立即停用该药物，建议产科会诊",
				Evidence:    "中国高血压防治指南2023",
			})
		}
	}

	// Fall back to the class field when the drug name itself did not match.
	if len(warnings) == 0 {
		for _, med := range profile.Medications {
			class := strings.ToUpper(med.DrugClass)
			if class == "ACEI" || class == "ARB" {
				warnings = append(warnings, Finding{
					Type:        "pregnancy_contraindication",
					Severity:    SeverityCritical,
					DrugClass:   "ACEI/ARB",
					Message:     "⚠️ 严重警告：孕妇禁用ACEI/ARB类药物！",
					Reason:      "此类药物可导致胎儿发育异常",
					Alternative: "建议使用甲基多巴、拉贝洛尔或硝苯地平缓释片",
					Action:      "建议产科会诊",
					Evidence:    "中国高血压防治指南2023",
				})
				break
			}
		}
	}

	for _, rec := range recommendations {
		content := strings.ToLower(rec.Content)
		if strings.Contains(content, "acei") || strings.Contains(content, "arb") ||
			strings.Contains(content, "普利") || strings.Contains(content, "沙坦") {
			warnings = append(warnings, Finding{
				Type:     "recommendation_contraindication",
				Severity: SeverityCritical,
				Message:  "⚠️ 警告：推荐方案中包含孕妇禁用药物！",
				Reason:   "患者为孕妇，ACEI/ARB类药物绝对禁忌",
				Action:   "请重新评估治疗方案，选择孕妇安全用药",
				Evidence: "妊娠期高血压疾病诊治指南",
			})
		}
	}

	return warnings
}

func isPregnant(profile *patient.Profile) bool {
	if profile.Gender != "女" {
		return false
	}
	for _, diag := range profile.Diagnoses {
		name := strings.ToLower(diag.DiagnosisName)
		for _, keyword := range pregnancyKeywords {
			if strings.Contains(name, keyword) {
				return true
			}
		}
	}
	return false
}

func matchesDrug(lowerName string, knownDrugs, fragments []string) bool {
	for _, d := range knownDrugs {
		if lowerName == strings.ToLower(d) {
			return true
		}
	}
	for _, frag := range fragments {
		if strings.Contains(lowerName, frag) {
			return true
		}
	}
	return false
}

func (g *Guard) checkHypertensiveEmergency(profile *patient.Profile) []Finding {
	var alerts []Finding

	ha := profile.Hypertension
	if ha == nil {
		return alerts
	}

	if ha.SBP != nil && *ha.SBP >= emergencySBP {
		alerts = append(alerts, Finding{
			Type:            "hypertensive_emergency",
			Severity:        SeverityCritical,
			Message:         fmt.Sprintf("🚨 高血压急症：收缩压 %d mmHg ≥ %d mmHg", *ha.SBP, emergencySBP),
			SymptomsToCheck: hypertensiveEmergencySymptoms,
			ImmediateAction: []string{
				"1. 立即评估意识状态和生命体征",
				"2. 建立静脉通路",
				"3. 立即给予静脉降压药物（乌拉地尔、硝普钠等）",
				"4. 目标：1小时内降低血压不超过25%",
				"5. 紧急转诊至急诊科/心内科",
			},
			Evidence:           "中国高血压防治指南2023",
			RequiresReferral:   true,
			ReferralDepartment: "急诊科/心内科",
		})
	}

	// The diastolic alert is suppressed when the systolic one already fired.
	if ha.DBP != nil && *ha.DBP >= emergencyDBP && len(alerts) == 0 {
		alerts = append(alerts, Finding{
			Type:             "hypertensive_emergency",
			Severity:         SeverityCritical,
			Message:          fmt.Sprintf("🚨 高血压急症：舒张压 %d mmHg ≥ %d mmHg", *ha.DBP, emergencyDBP),
			ImmediateAction:  []string{"紧急降压治疗", "转诊至急诊科"},
			Evidence:         "中国高血压防治指南2023",
			RequiresReferral: true,
		})
	}

	return alerts
}

func (g *Guard) checkDrugContraindications(profile *patient.Profile) []Finding {
	var warnings []Finding

	if len(profile.Medications) == 0 {
		return warnings
	}

	diagNames := make([]string, 0, len(profile.Diagnoses))
	for _, d := range profile.Diagnoses {
		diagNames = append(diagNames, strings.ToLower(d.DiagnosisName))
	}

	for _, med := range profile.Medications {
		for _, class := range drugClasses {
			if !classMatches(med, class) {
				continue
			}
			for _, contra := range class.contraindications {
				contraLower := strings.ToLower(contra)
				for _, diagName := range diagNames {
					if strings.Contains(diagName, contraLower) || strings.Contains(contraLower, diagName) {
						warnings = append(warnings, Finding{
							Type:             "drug_contraindication",
							Severity:         SeverityWarning,
							Drug:             med.DrugName,
							DrugClass:        class.name,
							Contraindication: contra,
							Message:          fmt.Sprintf("⚠️ 用药警告：%s（%s）在%s患者中应慎用或禁用", med.DrugName, class.name, contra),
							Action:           "请评估获益/风险比，考虑替代药物",
						})
					}
				}
			}
		}
	}

	return warnings
}

func classMatches(med patient.Medication, class drugClass) bool {
	name := strings.ToLower(med.DrugName)
	for _, d := range class.drugs {
		if name == strings.ToLower(d) {
			return true
		}
	}
	return strings.Contains(med.DrugClass, class.name)
}

func (g *Guard) checkDrugInteractions(profile *patient.Profile) []Finding {
	var interactions []Finding

	if len(profile.Medications) < 2 {
		return interactions
	}

	parts := make([]string, 0, len(profile.Medications)*2)
	for _, med := range profile.Medications {
		parts = append(parts, med.DrugClass)
	}
	for _, med := range profile.Medications {
		parts = append(parts, med.DrugName)
	}
	combined := strings.Join(parts, " ")

	for _, pair := range interactionPairs {
		if containsAny(combined, pair.group1) && containsAny(combined, pair.group2) {
			interactions = append(interactions, Finding{
				Type:     "drug_interaction",
				Severity: SeverityWarning,
				Drugs:    [][]string{pair.group1, pair.group2},
				Message: fmt.Sprintf("⚠️ 药物相互作用：%s + %s → %s",
					strings.Join(pair.group1, "/"), strings.Join(pair.group2, "/"), pair.risk),
				Action: "密切监测，必要时调整剂量或更换药物",
			})
		}
	}

	return interactions
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func (g *Guard) checkSpecialPopulation(profile *patient.Profile) []Finding {
	var warnings []Finding

	if profile.Age >= 65 {
		warnings = append(warnings, Finding{
			Type:           "special_population",
			Severity:       SeverityInfo,
			Population:     "老年患者",
			Message:        "📋 老年患者用药注意：建议从小剂量开始，缓慢增量，密切监测",
			Considerations: elderlyConsiderations,
		})
	}

	for _, diag := range profile.Diagnoses {
		name := strings.ToLower(diag.DiagnosisName)
		if strings.Contains(name, "肾") &&
			(strings.Contains(name, "功能不全") || strings.Contains(name, "衰竭") || strings.Contains(name, "病")) {
			warnings = append(warnings, Finding{
				Type:           "special_population",
				Severity:       SeverityWarning,
				Population:     "肾功能不全",
				Message:        "⚠️ 肾功能不全患者用药注意",
				Considerations: renalConsiderations,
			})
			break
		}
	}

	return warnings
}

func (g *Guard) checkGlucoseEmergency(profile *patient.Profile) []Finding {
	var alerts []Finding

	da := profile.Diabetes
	if da == nil || da.FastingGlucose == nil {
		return alerts
	}
	glucose := *da.FastingGlucose

	if glucose < hypoglycemiaGlucose {
		alerts = append(alerts, Finding{
			Type:     "hypoglycemia",
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("🚨 低血糖警告：血糖 %.1f mmol/L < 3.9 mmol/L", glucose),
			Symptoms: hypoglycemiaSymptoms,
			ImmediateAction: []string{
				"1. 立即进食15-20g快速作用碳水化合物",
				"2. 15分钟后复测血糖",
				"3. 如未改善，重复进食",
				"4. 严重低血糖（意识障碍）需急救处理",
			},
		})
	}

	if glucose > hyperglycemiaGlucose {
		alerts = append(alerts, Finding{
			Type:              "severe_hyperglycemia",
			Severity:          SeverityWarning,
			Message:           fmt.Sprintf("⚠️ 严重高血糖：血糖 %.1f mmol/L > 16.7 mmol/L", glucose),
			Risk:              "糖尿病酮症酸中毒(DKA)风险",
			SymptomsToMonitor: hyperglycemiaSymptoms,
			Action:            "及时就医，监测酮体，必要时住院治疗",
		})
	}

	return alerts
}
