package safety

// Emergency thresholds. SBP/DBP in mmHg, glucose in mmol/L.
const (
	emergencySBP         = 180
	emergencyDBP         = 120
	hypoglycemiaGlucose  = 3.9
	hyperglycemiaGlucose = 16.7
)

// drugClass holds the contraindication table for one antihypertensive class.
// Classes are kept as an ordered slice so checks always run in the same order.
type drugClass struct {
	name              string
	drugs             []string
	contraindications []string
	interactions      []string
}

var drugClasses = []drugClass{
	{
		name:              "ACEI类",
		drugs:             []string{"依那普利", "贝那普利", "培哚普利", "雷米普利", "福辛普利"},
		contraindications: []string{"妊娠", "双侧肾动脉狭窄", "高钾血症", "血管性水肿史"},
		interactions:      []string{"保钾利尿剂", "NSAIDs", "锂盐"},
	},
	{
		name:              "ARB类",
		drugs:             []string{"缬沙坦", "厄贝沙坦", "氯沙坦", "替米沙坦", "坎地沙坦"},
		contraindications: []string{"妊娠", "双侧肾动脉狭窄", "高钾血症"},
		interactions:      []string{"保钾利尿剂", "NSAIDs", "锂盐"},
	},
	{
		name:              "CCB类",
		drugs:             []string{"氨氯地平", "硝苯地平", "非洛地平", "尼群地平"},
		contraindications: []string{"心源性休克", "严重主动脉瓣狭窄"},
		interactions:      []string{"β受体阻滞剂"},
	},
	{
		name:              "β受体阻滞剂",
		drugs:             []string{"美托洛尔", "比索洛尔", "阿替洛尔", "普萘洛尔"},
		contraindications: []string{"支气管哮喘", "严重心动过缓", "二度以上房室传导阻滞"},
		interactions:      []string{"非二氢吡啶类CCB", "胰岛素"},
	},
	{
		name:              "利尿剂",
		drugs:             []string{"氢氯噻嗪", "呋塞米", "螺内酯", "吲达帕胺"},
		contraindications: []string{"严重肾功能不全", "电解质紊乱"},
		interactions:      []string{"ACEI", "ARB", "锂盐"},
	},
}

func classByName(name string) *drugClass {
	for i := range drugClasses {
		if drugClasses[i].name == name {
			return &drugClasses[i]
		}
	}
	return nil
}

// Diagnosis keywords that identify a pregnant patient.
var pregnancyKeywords = []string{"妊娠", "孕", "怀孕", "pregnancy", "pregnant", "产前", "产后"}

// Name fragments identifying ACEI/ARB drugs regardless of the known-drug list.
var (
	aceiNameFragments = []string{"普利", "pril"}
	arbNameFragments  = []string{"沙坦", "sartan"}
)

// Known interaction pairs: if the combined class+name text matches a keyword
// from each group, the interaction fires.
type interactionPair struct {
	group1 []string
	group2 []string
	risk   string
}

var interactionPairs = []interactionPair{
	{[]string{"ACEI", "ARB"}, []string{"保钾利尿剂", "螺内酯"}, "高钾血症风险增加"},
	{[]string{"β受体阻滞剂"}, []string{"非二氢吡啶类CCB", "地尔硫䓬", "维拉帕米"}, "严重心动过缓风险"},
	{[]string{"ACEI", "ARB"}, []string{"NSAIDs", "布洛芬", "双氯芬酸"}, "降压效果减弱，肾功能损害风险"},
	{[]string{"利尿剂"}, []string{"锂盐"}, "锂中毒风险"},
	{[]string{"β受体阻滞剂"}, []string{"胰岛素"}, "可能掩盖低血糖症状"},
}

// Symptom checklists attached to emergency findings.
var (
	hypertensiveEmergencySymptoms = []string{"头痛", "呕吐", "视物模糊", "意识障碍", "胸痛", "呼吸困难"}
	hypoglycemiaSymptoms          = []string{"出汗", "心悸", "颤抖", "饥饿感", "焦虑", "意识模糊"}
	hyperglycemiaSymptoms         = []string{"口渴多饮", "多尿", "恶心呕吐", "腹痛", "呼吸深快", "意识改变"}
)

var elderlyConsiderations = []string{
	"肾功能可能减退，需调整药物剂量",
	"多药联用风险增加，注意药物相互作用",
	"跌倒风险增加，降压不宜过快",
	"血压目标可适当放宽（<150/90 mmHg）",
}

var renalConsiderations = []string{
	"二甲双胍慎用或禁用（eGFR<45禁用）",
	"需调整经肾排泄药物剂量",
	"ACEI/ARB类需监测肾功能和血钾",
	"避免使用NSAIDs类药物",
}
