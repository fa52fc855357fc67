package risk

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cdss/cdss/internal/domain/patient"
)

// Engine performs deterministic risk stratification for hypertension and
// diabetes. The same profile always yields the same assessment apart from
// the timestamp and next-visit date.
type Engine struct {
	log zerolog.Logger
	now func() time.Time
}

func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log, now: time.Now}
}

// AssessPatient runs the full evaluation: sub-assessments, overall level,
// follow-up plan and treatment recommendations.
func (e *Engine) AssessPatient(profile *patient.Profile) *Assessment {
	e.log.Info().Str("patient_id", profile.PatientID).Msg("开始患者风险评估")

	a := &Assessment{
		PatientID:        profile.PatientID,
		AssessmentTime:   e.now().Format(time.RFC3339),
		OverallRiskLevel: LevelLow,
		RiskFactors:      []string{},
		Recommendations:  []Recommendation{},
		Warnings:         []Warning{},
	}

	if profile.Hypertension != nil {
		a.HypertensionRisk = e.assessHypertension(profile.Hypertension, profile)
	}
	if profile.Diabetes != nil {
		a.DiabetesRisk = e.assessDiabetes(profile.Diabetes)
	}

	e.calculateOverallRisk(a, profile)
	a.FollowUpPlan = e.followUpPlan(a.OverallRiskLevel)
	a.Recommendations = e.recommendations(a)
	a.Warnings = e.CheckEmergency(profile)

	e.log.Info().
		Str("patient_id", profile.PatientID).
		Str("overall_risk_level", a.OverallRiskLevel.String()).
		Msg("患者风险评估完成")
	return a
}

func (e *Engine) assessHypertension(ha *patient.HypertensionAssessment, profile *patient.Profile) *HypertensionRisk {
	result := &HypertensionRisk{
		BPGrade:            BPGradeUnknown,
		RiskLevel:          LevelLow,
		RiskFactors:        []string{},
		TargetOrganDamage:  []string{},
		ClinicalConditions: []string{},
		EvaluationLogic:    []string{},
	}

	if ha.SBP == nil || ha.DBP == nil {
		return result
	}
	sbp, dbp := *ha.SBP, *ha.DBP

	// 血压分级。1-2级判定沿用 OR 语义：收缩压或舒张压任一未超过
	// 上界即落入该级。
	switch {
	case sbp < 120 && dbp < 80:
		result.BPGrade = BPGradeNormal
	case sbp < 140 && dbp < 90:
		result.BPGrade = BPGradeHighNormal
	case sbp < 160 || dbp < 100:
		result.BPGrade = BPGrade1
	case sbp < 180 || dbp < 110:
		result.BPGrade = BPGrade2
	default:
		result.BPGrade = BPGrade3
	}
	result.EvaluationLogic = append(result.EvaluationLogic,
		fmt.Sprintf("血压 %d/%d mmHg → %s", sbp, dbp, result.BPGrade))

	if (profile.Gender == "男" && profile.Age >= 55) || (profile.Gender == "女" && profile.Age >= 65) {
		result.RiskFactors = append(result.RiskFactors, "年龄")
		result.EvaluationLogic = append(result.EvaluationLogic,
			fmt.Sprintf("年龄 %d岁，%s，属于高龄危险因素", profile.Age, profile.Gender))
	}

	if profile.BMI != nil && *profile.BMI >= 28 {
		result.RiskFactors = append(result.RiskFactors, "肥胖")
		result.EvaluationLogic = append(result.EvaluationLogic,
			fmt.Sprintf("BMI %s ≥ 28，属于肥胖危险因素", formatFloat(*profile.BMI)))
	}

	if ha.RiskFactors != "" {
		for _, factor := range knownRiskFactors {
			if strings.Contains(ha.RiskFactors, factor) && !contains(result.RiskFactors, factor) {
				result.RiskFactors = append(result.RiskFactors, factor)
			}
		}
	}

	if ha.TargetOrgansDamage != "" && ha.TargetOrgansDamage != "无" {
		for _, damage := range knownOrganDamage {
			if strings.Contains(ha.TargetOrgansDamage, damage) {
				result.TargetOrganDamage = append(result.TargetOrganDamage, damage)
			}
		}
	}

	if ha.ClinicalConditions != "" && ha.ClinicalConditions != "无" {
		for _, cond := range knownClinicalConditions {
			if strings.Contains(ha.ClinicalConditions, cond) {
				result.ClinicalConditions = append(result.ClinicalConditions, cond)
			}
		}
	}

	factorCount := len(result.RiskFactors)
	hasOrganDamage := len(result.TargetOrganDamage) > 0
	hasClinicalCond := len(result.ClinicalConditions) > 0

	switch {
	case hasClinicalCond:
		result.RiskLevel = LevelVeryHigh
		result.EvaluationLogic = append(result.EvaluationLogic,
			fmt.Sprintf("存在临床疾患(%s) → 很高危", strings.Join(result.ClinicalConditions, ", ")))
	case hasOrganDamage || factorCount >= 3:
		if result.BPGrade == BPGrade2 || result.BPGrade == BPGrade3 {
			result.RiskLevel = LevelVeryHigh
		} else {
			result.RiskLevel = LevelHigh
		}
		result.EvaluationLogic = append(result.EvaluationLogic,
			fmt.Sprintf("存在靶器官损害或≥3个危险因素 → %s", result.RiskLevel))
	case factorCount >= 1:
		if result.BPGrade == BPGrade3 {
			result.RiskLevel = LevelHigh
		} else {
			result.RiskLevel = LevelModerate
		}
		result.EvaluationLogic = append(result.EvaluationLogic,
			fmt.Sprintf("%d个危险因素 + %s → %s", factorCount, result.BPGrade, result.RiskLevel))
	default:
		switch result.BPGrade {
		case BPGrade3:
			result.RiskLevel = LevelHigh
		case BPGrade2:
			result.RiskLevel = LevelModerate
		default:
			result.RiskLevel = LevelLow
		}
		result.EvaluationLogic = append(result.EvaluationLogic,
			fmt.Sprintf("无额外危险因素 + %s → %s", result.BPGrade, result.RiskLevel))
	}

	return result
}

func (e *Engine) assessDiabetes(da *patient.DiabetesAssessment) *DiabetesRisk {
	result := &DiabetesRisk{
		ControlStatus:   ControlUnknown,
		RiskLevel:       LevelLow,
		RiskFactors:     []string{},
		Complications:   []string{},
		EvaluationLogic: []string{},
	}

	if da.HbA1c != nil {
		hba1c := *da.HbA1c
		switch {
		case hba1c < 7.0:
			result.ControlStatus = ControlGood
			result.EvaluationLogic = append(result.EvaluationLogic,
				fmt.Sprintf("HbA1c %s%% < 7.0%% → 控制良好", formatFloat(hba1c)))
		case hba1c < 8.5:
			result.ControlStatus = ControlFair
			result.EvaluationLogic = append(result.EvaluationLogic,
				fmt.Sprintf("HbA1c %s%% 在 7.0-8.5%% → 控制一般", formatFloat(hba1c)))
		default:
			result.ControlStatus = ControlPoor
			result.RiskLevel = LevelHigh
			result.EvaluationLogic = append(result.EvaluationLogic,
				fmt.Sprintf("HbA1c %s%% ≥ 8.5%% → 控制不佳，高危", formatFloat(hba1c)))
		}
	}

	if da.FastingGlucose != nil && *da.FastingGlucose >= 10.0 {
		result.RiskFactors = append(result.RiskFactors, "空腹血糖过高")
		result.EvaluationLogic = append(result.EvaluationLogic,
			fmt.Sprintf("空腹血糖 %s mmol/L ≥ 10.0 → 危险因素", formatFloat(*da.FastingGlucose)))
	}

	if da.Complications != "" && da.Complications != "无" {
		for _, comp := range knownComplications {
			if strings.Contains(da.Complications, comp) {
				result.Complications = append(result.Complications, comp)
			}
		}
		if len(result.Complications) > 0 {
			result.RiskLevel = LevelHigh
			result.EvaluationLogic = append(result.EvaluationLogic,
				fmt.Sprintf("存在并发症(%s) → 高危", strings.Join(result.Complications, ", ")))
		}
	}

	if da.InsulinUsage {
		insulinType := ""
		if da.InsulinType != nil {
			insulinType = *da.InsulinType
		}
		result.RiskFactors = append(result.RiskFactors, "需要胰岛素治疗")
		result.EvaluationLogic = append(result.EvaluationLogic,
			fmt.Sprintf("正在使用胰岛素(%s) → 需密切监测", insulinType))
	}

	return result
}

func (e *Engine) calculateOverallRisk(a *Assessment, profile *patient.Profile) {
	maxLevel := LevelLow

	if a.HypertensionRisk != nil {
		if a.HypertensionRisk.RiskLevel > maxLevel {
			maxLevel = a.HypertensionRisk.RiskLevel
		}
		a.RiskFactors = append(a.RiskFactors, a.HypertensionRisk.RiskFactors...)
	}
	if a.DiabetesRisk != nil {
		if a.DiabetesRisk.RiskLevel > maxLevel {
			maxLevel = a.DiabetesRisk.RiskLevel
		}
		a.RiskFactors = append(a.RiskFactors, a.DiabetesRisk.RiskFactors...)
	}

	// 高血压合并糖尿病，风险等级至少为高危
	if a.HypertensionRisk != nil && a.DiabetesRisk != nil {
		if maxLevel < LevelHigh {
			maxLevel = LevelHigh
		}
		a.RiskFactors = append(a.RiskFactors, "高血压合并糖尿病")
	}

	if profile.BMI != nil && *profile.BMI >= 28 && !contains(a.RiskFactors, "肥胖") {
		a.RiskFactors = append(a.RiskFactors, "肥胖")
	}

	a.RiskFactors = dedupe(a.RiskFactors)
	a.OverallRiskLevel = maxLevel
}

func (e *Engine) followUpPlan(level Level) FollowUpPlan {
	params, ok := followUpByLevel[level]
	if !ok {
		params = followUpByLevel[LevelLow]
	}
	return FollowUpPlan{
		Frequency:        params.frequency,
		NextVisit:        e.now().AddDate(0, 0, params.intervalWeeks*7).Format("2006-01-02"),
		MonitoringItems:  params.monitoringItems,
		LifestyleGoals:   lifestyleGoals,
		MedicationReview: params.medicationReview,
	}
}

func (e *Engine) recommendations(a *Assessment) []Recommendation {
	var recs []Recommendation

	if ht := a.HypertensionRisk; ht != nil {
		switch ht.BPGrade {
		case BPGrade2, BPGrade3:
			recs = append(recs, Recommendation{
				Category:      "降压治疗",
				Content:       "建议起始联合治疗，推荐CCB+ACEI/ARB或CCB+利尿剂",
				EvidenceLevel: "ⅠA",
				Source:        "中国高血压防治指南2023",
				Rationale:     fmt.Sprintf("血压分级: %s，需积极降压", ht.BPGrade),
			})
		case BPGrade1:
			recs = append(recs, Recommendation{
				Category:      "降压治疗",
				Content:       "建议起始单药治疗，首选CCB、ACEI/ARB或利尿剂",
				EvidenceLevel: "ⅠA",
				Source:        "中国高血压防治指南2023",
				Rationale:     fmt.Sprintf("血压分级: %s，可先尝试单药治疗", ht.BPGrade),
			})
		}
	}

	if dm := a.DiabetesRisk; dm != nil {
		switch dm.ControlStatus {
		case ControlPoor:
			recs = append(recs, Recommendation{
				Category:      "降糖治疗",
				Content:       "HbA1c≥8.5%，建议强化治疗，可考虑起始胰岛素或联合多种口服药",
				EvidenceLevel: "ⅠA",
				Source:        "中国2型糖尿病防治指南2020",
				Rationale:     "HbA1c控制不佳，需加强降糖治疗",
			})
		case ControlFair:
			recs = append(recs, Recommendation{
				Category:      "降糖治疗",
				Content:       "血糖控制一般，建议优化现有方案，可联合DPP-4抑制剂或SGLT-2抑制剂",
				EvidenceLevel: "ⅠA",
				Source:        "中国2型糖尿病防治指南2020",
				Rationale:     "HbA1c未达标，需优化治疗",
			})
		}
	}

	if a.HypertensionRisk != nil && a.DiabetesRisk != nil {
		recs = append(recs, Recommendation{
			Category:      "综合管理",
			Content:       "高血压合并糖尿病，优先选择ACEI/ARB类降压药（兼具心肾保护作用），降糖药优先选择有心血管获益证据的SGLT-2抑制剂或GLP-1受体激动剂",
			EvidenceLevel: "ⅠA",
			Source:        "高血压/糖尿病联合指南",
			Rationale:     "多重危险因素并存，需综合管理",
		})
	}

	recs = append(recs, Recommendation{
		Category:      "生活方式干预",
		Content:       "控制饮食（低盐低脂低糖）、规律运动、控制体重、戒烟限酒、保持良好心态和睡眠",
		EvidenceLevel: "ⅠA",
		Source:        "各指南一致推荐",
		Rationale:     "生活方式干预是治疗的基础",
	})

	return recs
}

// CheckEmergency scans vital signs and fasting glucose for conditions that
// need immediate attention. Both blood pressure alerts can fire together.
func (e *Engine) CheckEmergency(profile *patient.Profile) []Warning {
	warnings := []Warning{}

	if ha := profile.Hypertension; ha != nil {
		if ha.SBP != nil && *ha.SBP >= emergencySBP {
			warnings = append(warnings, Warning{
				Type:     "hypertensive_emergency",
				Severity: SeverityCritical,
				Message:  fmt.Sprintf("⚠️ 高血压急症警告：收缩压 %d mmHg ≥ 180 mmHg！", *ha.SBP),
				Action:   "建议立即静脉降压治疗，目标1小时内降低不超过25%，需紧急转诊至急诊科",
				Evidence: "中国高血压防治指南2023",
			})
		}
		if ha.DBP != nil && *ha.DBP >= emergencyDBP {
			warnings = append(warnings, Warning{
				Type:     "hypertensive_emergency",
				Severity: SeverityCritical,
				Message:  fmt.Sprintf("⚠️ 高血压急症警告：舒张压 %d mmHg ≥ 120 mmHg！", *ha.DBP),
				Action:   "建议立即就医，需紧急降压治疗",
				Evidence: "中国高血压防治指南2023",
			})
		}
	}

	if da := profile.Diabetes; da != nil && da.FastingGlucose != nil {
		glucose := *da.FastingGlucose
		if glucose < hypoglycemia {
			warnings = append(warnings, Warning{
				Type:     "hypoglycemia",
				Severity: SeverityCritical,
				Message:  fmt.Sprintf("⚠️ 低血糖警告：空腹血糖 %s mmol/L < 3.9 mmol/L！", formatFloat(glucose)),
				Action:   "立即补充糖分，监测血糖变化，必要时就医",
				Evidence: "中国2型糖尿病防治指南2020",
			})
		}
		if glucose > ketoacidosisRef {
			warnings = append(warnings, Warning{
				Type:     "dka_risk",
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("⚠️ 高血糖警告：空腹血糖 %s mmol/L > 16.7 mmol/L", formatFloat(glucose)),
				Action:   "注意观察有无酮症酸中毒症状（恶心、呕吐、腹痛、呼吸深快），及时就医",
				Evidence: "中国2型糖尿病防治指南2020",
			})
		}
	}

	return warnings
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

// dedupe removes duplicates keeping first occurrence order so repeated
// assessments of the same profile produce identical output.
func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}
