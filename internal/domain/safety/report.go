package safety

import (
	"strings"

	"github.com/cdss/cdss/internal/domain/patient"
	"github.com/cdss/cdss/internal/domain/risk"
)

const reportDivider = "=================================================="

// GenerateSafetyReport runs CheckAll and renders the result as a plain-text
// report suitable for display or for embedding in a model prompt.
func (g *Guard) GenerateSafetyReport(profile *patient.Profile, recommendations []risk.Recommendation) string {
	result := g.CheckAll(profile, recommendations)

	lines := []string{reportDivider, "安全检查报告", reportDivider, ""}

	if result.IsSafe {
		lines = append(lines, "✅ 总体评估：未发现危急安全问题")
	} else {
		lines = append(lines, "❌ 总体评估：存在需要立即处理的安全问题")
	}
	lines = append(lines, "")

	if len(result.EmergencyAlerts) > 0 {
		lines = append(lines, "【危急警报】")
		for _, alert := range result.EmergencyAlerts {
			lines = append(lines, "  "+alert.Message)
			for _, action := range alert.ImmediateAction {
				lines = append(lines, "    → "+action)
			}
		}
		lines = append(lines, "")
	}

	if len(result.Contraindications) > 0 {
		lines = append(lines, "【禁忌症警告】")
		for _, contra := range result.Contraindications {
			lines = append(lines, "  "+contra.Message)
			if contra.Alternative != "" {
				lines = append(lines, "    替代方案: "+contra.Alternative)
			}
		}
		lines = append(lines, "")
	}

	if len(result.Interactions) > 0 {
		lines = append(lines, "【药物相互作用】")
		for _, interaction := range result.Interactions {
			lines = append(lines, "  "+interaction.Message)
		}
		lines = append(lines, "")
	}

	if len(result.Warnings) > 0 {
		lines = append(lines, "【注意事项】")
		for _, warning := range result.Warnings {
			lines = append(lines, "  "+warning.Message)
		}
		lines = append(lines, "")
	}

	if len(result.EmergencyAlerts) == 0 && len(result.Contraindications) == 0 &&
		len(result.Interactions) == 0 && len(result.Warnings) == 0 {
		lines = append(lines, "未发现安全问题。")
	}

	lines = append(lines, reportDivider)
	return strings.Join(lines, "\n")
}
