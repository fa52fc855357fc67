package risk

// Emergency thresholds. SBP/DBP in mmHg, glucose in mmol/L.
const (
	emergencySBP    = 180
	emergencyDBP    = 120
	hypoglycemia    = 3.9
	ketoacidosisRef = 16.7
)

// Known risk factor keywords scanned from free-text assessment fields.
var knownRiskFactors = []string{"吸烟", "血脂异常", "糖尿病", "肥胖", "高龄", "家族史"}

// Target organ damage keywords.
var knownOrganDamage = []string{"左心室肥厚", "颈动脉斑块", "肾功能异常", "蛋白尿"}

// Clinical condition keywords.
var knownClinicalConditions = []string{"冠心病", "脑卒中", "慢性肾病", "心力衰竭", "外周血管病"}

// Diabetes complication keywords.
var knownComplications = []string{"视网膜病变", "周围神经病变", "肾病", "足病", "心血管病变"}

// Lifestyle goals included in every follow-up plan.
var lifestyleGoals = []string{
	"低盐低脂饮食(每日盐<6g)",
	"规律运动(每周≥150分钟中等强度)",
	"控制体重(BMI<24)",
	"戒烟限酒",
	"保持良好睡眠",
}

type followUpParams struct {
	frequency        string
	intervalWeeks    int
	monitoringItems  []string
	medicationReview string
}

// Follow-up cadence per overall risk level.
var followUpByLevel = map[Level]followUpParams{
	LevelVeryHigh: {
		frequency:        "每2周随访",
		intervalWeeks:    2,
		monitoringItems:  []string{"血压(每日)", "血糖(每日)", "症状变化", "用药依从性"},
		medicationReview: "2周后复诊评估疗效，必要时调整方案",
	},
	LevelHigh: {
		frequency:        "每月随访",
		intervalWeeks:    4,
		monitoringItems:  []string{"血压(每周3次)", "血糖(每周)", "体重", "用药依从性"},
		medicationReview: "1个月后复诊，评估血压/血糖达标情况",
	},
	LevelModerate: {
		frequency:        "每2月随访",
		intervalWeeks:    8,
		monitoringItems:  []string{"血压(每周)", "血糖(每2周)", "体重", "生活方式执行"},
		medicationReview: "2个月后复诊，评估控制效果",
	},
	LevelLow: {
		frequency:        "每3月随访",
		intervalWeeks:    12,
		monitoringItems:  []string{"血压(每2周)", "血糖(每月)", "体重"},
		medicationReview: "3个月后常规复诊",
	},
}
