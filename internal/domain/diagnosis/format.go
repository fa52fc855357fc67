package diagnosis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cdss/cdss/internal/domain/patient"
)

// FormatProfile renders a patient profile as the plain-text block that is
// embedded in prompts. Only the ten most recent lab results are included.
func FormatProfile(p *patient.Profile) string {
	if p == nil {
		return "暂无患者信息"
	}

	var lines []string
	lines = append(lines, "【患者基本信息】")
	lines = append(lines, "患者ID: "+orNA(p.PatientID))
	lines = append(lines, "姓名: "+orNA(p.Name))
	lines = append(lines, "性别: "+orNA(p.Gender))
	lines = append(lines, fmt.Sprintf("年龄: %d岁", p.Age))
	if p.HeightCM != nil {
		lines = append(lines, "身高: "+formatFloat(*p.HeightCM)+"cm")
	}
	if p.WeightKG != nil {
		lines = append(lines, "体重: "+formatFloat(*p.WeightKG)+"kg")
	}
	if p.BMI != nil {
		lines = append(lines, "BMI: "+formatFloat(*p.BMI))
	}

	if len(p.Diagnoses) > 0 {
		lines = append(lines, "", "【诊断信息】")
		for _, d := range p.Diagnoses {
			lines = append(lines, fmt.Sprintf("- %s (%s)", d.DiagnosisName, deref(d.DiagnosisType)))
		}
	}

	if len(p.Medications) > 0 {
		lines = append(lines, "", "【用药记录】")
		for _, m := range p.Medications {
			lines = append(lines, fmt.Sprintf("- %s %s %s", m.DrugName, deref(m.Dosage), deref(m.Frequency)))
		}
	}

	if ha := p.Hypertension; ha != nil {
		lines = append(lines, "", "【高血压评估】")
		lines = append(lines, fmt.Sprintf("血压: %s/%s mmHg", intOrNA(ha.SBP), intOrNA(ha.DBP)))
		lines = append(lines, "风险等级: "+orNA(deref(ha.RiskLevel)))
		lines = append(lines, "危险因素: "+orNA(ha.RiskFactors))
	}

	if da := p.Diabetes; da != nil {
		lines = append(lines, "", "【糖尿病评估】")
		lines = append(lines, fmt.Sprintf("空腹血糖: %s mmol/L", floatOrNA(da.FastingGlucose)))
		lines = append(lines, fmt.Sprintf("糖化血红蛋白(HbA1c): %s%%", floatOrNA(da.HbA1c)))
		lines = append(lines, "控制状态: "+orNA(deref(da.ControlStatus)))
	}

	if len(p.LabResults) > 0 {
		lines = append(lines, "", "【检验结果】")
		labs := p.LabResults
		if len(labs) > 10 {
			labs = labs[:10]
		}
		for _, lab := range labs {
			abnormal := ""
			if lab.IsAbnormal {
				abnormal = "↑"
			}
			lines = append(lines, fmt.Sprintf("- %s: %s %s %s", lab.TestItem, lab.ResultValue, deref(lab.Unit), abnormal))
		}
	}

	return strings.Join(lines, "\n")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intOrNA(v *int) string {
	if v == nil {
		return "N/A"
	}
	return strconv.Itoa(*v)
}

func floatOrNA(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
