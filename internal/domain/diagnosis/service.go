package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cdss/cdss/internal/domain/knowledge"
	"github.com/cdss/cdss/internal/domain/patient"
	"github.com/cdss/cdss/internal/domain/risk"
	"github.com/cdss/cdss/internal/domain/safety"
	"github.com/cdss/cdss/internal/domain/terminology"
	"github.com/cdss/cdss/internal/platform/llm"
)

// ErrNoPatient is returned when neither a patient id nor an inline profile
// was supplied for an operation that needs one.
var ErrNoPatient = errors.New("diagnosis: patient id or profile required")

// unavailableReply wraps an upstream model failure into the degraded
// answer clients receive instead of an error.
func unavailableReply(err error) string {
	return fmt.Sprintf("抱歉，AI服务暂时不可用，请稍后重试。错误信息: %v", err)
}

// dangerSymptoms flag a hypertensive emergency when reported alongside a
// blood pressure above the crisis thresholds.
var dangerSymptoms = []string{"头痛", "呕吐", "视物模糊", "意识障碍", "胸痛"}

// ProfileBuilder loads the aggregated patient read model.
type ProfileBuilder interface {
	BuildProfile(ctx context.Context, patientID string) (*patient.Profile, error)
}

// GuidelineSearcher retrieves guideline snippets for prompt context.
type GuidelineSearcher interface {
	Search(ctx context.Context, query string, topK int) (*knowledge.SearchResult, error)
}

// Generator produces a model reply for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt, systemPrompt string, history []llm.Message) (string, error)
}

// Service is the clinical reasoning layer. Deterministic results come from
// the risk engine and safety guard; the language model only narrates and
// supplements them, and its failures degrade to an apology instead of
// failing the request.
type Service struct {
	profiles ProfileBuilder
	searcher GuidelineSearcher
	engine   *risk.Engine
	guard    *safety.Guard
	mapper   *terminology.Mapper
	llm      Generator
	log      zerolog.Logger
}

func NewService(profiles ProfileBuilder, searcher GuidelineSearcher, engine *risk.Engine,
	guard *safety.Guard, mapper *terminology.Mapper, gen Generator, log zerolog.Logger) *Service {
	return &Service{
		profiles: profiles,
		searcher: searcher,
		engine:   engine,
		guard:    guard,
		mapper:   mapper,
		llm:      gen,
		log:      log,
	}
}

func (s *Service) generate(ctx context.Context, prompt string) string {
	reply, err := s.llm.Generate(ctx, prompt, llm.MedicalSystemPrompt, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("LLM调用失败")
		return unavailableReply(err)
	}
	return reply
}

// search is a best-effort guideline lookup for prompt grounding. A broken
// knowledge base must never take the reasoning endpoints down with it.
func (s *Service) search(ctx context.Context, query string, topK int) []knowledge.Hit {
	result, err := s.searcher.Search(ctx, query, topK)
	if err != nil {
		s.log.Warn().Err(err).Str("query", query).Msg("知识检索失败")
		return nil
	}
	return result.Hits
}

func hitSources(hits []knowledge.Hit, max int) []knowledge.HitSource {
	if len(hits) > max {
		hits = hits[:max]
	}
	sources := make([]knowledge.HitSource, 0, len(hits))
	for _, h := range hits {
		sources = append(sources, h.Source)
	}
	return sources
}

// AssessRisk runs the rule-based assessment and asks the model for a
// narrative interpretation with follow-up advice.
func (s *Service) AssessRisk(ctx context.Context, patientID string) (*RiskInterpretation, error) {
	s.log.Info().Str("patient_id", patientID).Msg("开始风险分层评估")

	profile, err := s.profiles.BuildProfile(ctx, patientID)
	if err != nil {
		return nil, err
	}
	assessment := s.engine.AssessPatient(profile)
	hits := s.search(ctx, "高血压风险评估 "+assessment.OverallRiskLevel.String(), 3)

	htnLevel, dmLevel := "N/A", "N/A"
	if assessment.HypertensionRisk != nil {
		htnLevel = assessment.HypertensionRisk.RiskLevel.String()
	}
	if assessment.DiabetesRisk != nil {
		dmLevel = assessment.DiabetesRisk.RiskLevel.String()
	}

	prompt := fmt.Sprintf(`基于以下患者风险评估结果，请生成详细的评估解读和建议：

患者信息：
%s

风险评估结果：
- 总体风险等级: %s
- 高血压风险: %s
- 糖尿病风险: %s
- 危险因素: %s

请提供：
1. 风险评估逻辑解释
2. 具体的随访计划
3. 需要监测的指标
4. 注意事项`,
		FormatProfile(profile),
		assessment.OverallRiskLevel,
		htnLevel, dmLevel,
		strings.Join(assessment.RiskFactors, ", "))

	result := &RiskInterpretation{
		PatientID:      patientID,
		Assessment:     assessment,
		Interpretation: s.generate(ctx, prompt),
		Sources:        hitSources(hits, 3),
	}
	s.log.Info().Str("patient_id", patientID).Str("risk_level", assessment.OverallRiskLevel.String()).Msg("风险评估完成")
	return result, nil
}

// CheckDrugConflicts combines the rule-based safety result with a model
// analysis of the medication list.
func (s *Service) CheckDrugConflicts(ctx context.Context, patientID string) (*DrugConflictReport, error) {
	s.log.Info().Str("patient_id", patientID).Msg("开始用药冲突检测")

	profile, err := s.profiles.BuildProfile(ctx, patientID)
	if err != nil {
		return nil, err
	}
	check := s.guard.CheckAll(profile, nil)

	var hits []knowledge.Hit
	if len(profile.Medications) > 0 {
		names := make([]string, 0, 5)
		for _, m := range profile.Medications {
			if len(names) == 5 {
				break
			}
			names = append(names, m.DrugName)
		}
		hits = s.search(ctx, "药物相互作用 禁忌 "+strings.Join(names, " "), 3)
	}

	var diagnoses []string
	for _, d := range profile.Diagnoses {
		diagnoses = append(diagnoses, d.DiagnosisName)
	}
	var medLines []string
	for _, m := range profile.Medications {
		medLines = append(medLines, fmt.Sprintf("- %s %s %s", m.DrugName, deref(m.Dosage), deref(m.Frequency)))
	}

	prompt := fmt.Sprintf(`请分析以下患者的用药情况，检测可能的药物冲突和禁忌：

患者信息：
- 年龄: %d岁
- 性别: %s
- 诊断: %s

当前用药：
%s

系统检测到的问题：
禁忌症: %d条
药物相互作用: %d条

请提供：
1. 用药安全性评估
2. 潜在的药物相互作用分析
3. 改进建议（如有）`,
		profile.Age, profile.Gender, strings.Join(diagnoses, ", "),
		strings.Join(medLines, "\n"),
		len(check.Contraindications), len(check.Interactions))

	result := &DrugConflictReport{
		PatientID:          patientID,
		CurrentMedications: profile.Medications,
		SafetyCheck:        check,
		Analysis:           s.generate(ctx, prompt),
		HasConflicts:       len(check.Contraindications) > 0 || len(check.Interactions) > 0,
		Sources:            hitSources(hits, 3),
	}
	s.log.Info().Str("patient_id", patientID).
		Int("contraindications", len(check.Contraindications)).
		Int("interactions", len(check.Interactions)).
		Msg("用药冲突检测完成")
	return result, nil
}

// GenerateDiagnosis normalizes the reported symptoms, retrieves matching
// guideline passages and asks the model for a ranked differential list.
func (s *Service) GenerateDiagnosis(ctx context.Context, req DiagnosisRequest) (*DifferentialDiagnosis, error) {
	s.log.Info().Str("symptoms", truncateRunes(req.Symptoms, 50)).Msg("开始诊断推理")

	patientContext := ""
	if req.PatientID != "" {
		profile, err := s.profiles.BuildProfile(ctx, req.PatientID)
		switch {
		case errors.Is(err, patient.ErrNotFound):
			// unknown id degrades to an anonymous consultation
		case err != nil:
			return nil, err
		default:
			patientContext = FormatProfile(profile)
		}
	}

	normalized, replacements := s.mapper.NormalizeText(req.Symptoms)
	hits := s.search(ctx, "鉴别诊断 "+normalized, 5)

	var contextParts []string
	for i, h := range hits {
		if i == 3 {
			break
		}
		contextParts = append(contextParts, h.Content)
	}
	ragContext := "暂无相关参考信息"
	if len(contextParts) > 0 {
		ragContext = strings.Join(contextParts, "\n\n")
	}

	prompt := fmt.Sprintf(`请基于以下信息进行诊断推理，生成鉴别诊断列表：

【主诉/症状】
%s

【检查数据】
%s

【患者背景】
%s

【参考资料】
%s

请提供：
1. 至少3个鉴别诊断，按可能性从高到低排序
2. 每个诊断的概率估计（高/中/低）
3. 支持该诊断的依据
4. 完整的推理路径

输出格式：
## 鉴别诊断列表

### 1. [诊断名称] - 可能性: [高/中/低]
- 支持依据: ...
- 不支持依据: ...

### 2. [诊断名称] - 可能性: [高/中/低]
...

## 推理路径
1. 首先分析主要症状...
2. 结合检查结果...
3. 考虑到患者背景...
4. 综合判断...`,
		normalized, orDefault(formatExamData(req.ExamData), "暂无"), orDefault(patientContext, "暂无"), ragContext)

	result := &DifferentialDiagnosis{
		Input: DiagnosisInput{
			Symptoms:           req.Symptoms,
			NormalizedSymptoms: normalized,
			ExamData:           req.ExamData,
			PatientID:          req.PatientID,
		},
		Result:       s.generate(ctx, prompt),
		TermMappings: replacements,
		Sources:      hitSources(hits, 5),
	}
	s.log.Info().Msg("诊断推理完成")
	return result, nil
}

func formatExamData(exam *ExamData) string {
	if exam == nil {
		return ""
	}
	var items []string
	if exam.SBP != nil && exam.DBP != nil {
		items = append(items, fmt.Sprintf("血压: %d/%d mmHg", *exam.SBP, *exam.DBP))
	}
	if exam.HbA1c != nil {
		items = append(items, fmt.Sprintf("HbA1c: %s%%", formatFloat(*exam.HbA1c)))
	}
	if exam.FastingGlucose != nil {
		items = append(items, fmt.Sprintf("空腹血糖: %s mmol/L", formatFloat(*exam.FastingGlucose)))
	}
	if exam.BMI != nil {
		items = append(items, "BMI: "+formatFloat(*exam.BMI))
	}
	return strings.Join(items, "\n")
}

// GenerateTreatmentPlan builds a personalized plan grounded in the risk
// assessment, the safety findings and the retrieved guidelines.
func (s *Service) GenerateTreatmentPlan(ctx context.Context, req TreatmentPlanRequest) (*TreatmentPlan, error) {
	s.log.Info().Str("patient_id", req.PatientID).Str("diagnosis", req.Diagnosis).Msg("开始生成治疗方案")

	var profile *patient.Profile
	switch {
	case req.PatientID != "":
		var err error
		profile, err = s.profiles.BuildProfile(ctx, req.PatientID)
		if err != nil {
			return nil, err
		}
	case req.Profile != nil:
		profile = req.Profile
	default:
		return nil, ErrNoPatient
	}

	assessment := s.engine.AssessPatient(profile)
	check := s.guard.CheckAll(profile, assessment.Recommendations)

	hits := s.search(ctx, fmt.Sprintf("治疗方案 %s %s", req.Diagnosis, assessment.OverallRiskLevel), 5)
	var contextParts []string
	for _, h := range hits {
		if h.EvidenceLevel != "" {
			contextParts = append(contextParts, fmt.Sprintf("[指南推荐 %s] %s", h.EvidenceLevel, h.Content))
		} else {
			contextParts = append(contextParts, h.Content)
		}
	}
	ragContext := "暂无相关参考信息"
	if len(contextParts) > 0 {
		ragContext = strings.Join(contextParts, "\n\n")
	}

	var warnings strings.Builder
	if len(check.EmergencyAlerts) > 0 {
		warnings.WriteString("\n⚠️ 紧急警报:\n" + joinMessages(check.EmergencyAlerts))
	}
	if len(check.Contraindications) > 0 {
		warnings.WriteString("\n⚠️ 禁忌症:\n" + joinMessages(check.Contraindications))
	}

	prompt := fmt.Sprintf(`请为以下患者制定个性化治疗方案：

【患者信息】
%s

【风险评估】
- 总体风险等级: %s
- 危险因素: %s

【诊断】
%s

【安全注意事项】
%s

【参考指南】
%s

请提供完整的治疗方案，包括：

## 一、治疗目标
- 血压目标:
- 血糖目标:
- 其他目标:

## 二、药物治疗
1. 药物名称 | 剂量 | 频次 | 证据等级 | 选择依据
2. ...

## 三、生活方式干预
1. 饮食建议
2. 运动建议
3. 其他

## 四、随访计划
- 下次随访时间:
- 监测指标:
- 复查项目:

## 五、注意事项
- 用药注意
- 警示症状

请确保所有建议标注证据等级（如ⅠA、ⅡB等），并注明出处。`,
		FormatProfile(profile),
		assessment.OverallRiskLevel,
		strings.Join(assessment.RiskFactors, ", "),
		orDefault(req.Diagnosis, "高血压/糖尿病"),
		orDefault(warnings.String(), "暂无特殊警告"),
		ragContext)

	result := &TreatmentPlan{
		PatientID:      req.PatientID,
		Diagnosis:      req.Diagnosis,
		RiskAssessment: assessment,
		SafetyCheck:    check,
		Plan:           s.generate(ctx, prompt),
		Sources:        hitSources(hits, 5),
	}
	s.log.Info().Msg("治疗方案生成完成")
	return result, nil
}

func joinMessages(findings []safety.Finding) string {
	var msgs []string
	for _, f := range findings {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "\n")
}

// AdjustTreatment re-plans after an unsatisfactory treatment response.
func (s *Service) AdjustTreatment(ctx context.Context, req AdjustmentRequest) (*AdjustedPlan, error) {
	s.log.Info().Str("patient_id", req.PatientID).Msg("开始调整治疗方案")

	profile, err := s.profiles.BuildProfile(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	duration := orDefault(req.Duration, "2周")
	hits := s.search(ctx, "治疗效果不佳 方案调整 "+req.TreatmentResponse, 3)

	prompt := fmt.Sprintf(`患者治疗%s后效果不佳，请重新评估并调整方案：

【患者信息】
%s

【当前治疗方案】
%s

【治疗反应】
%s

【治疗持续时间】
%s

请提供：

## 一、疗效评估
- 目标达成情况分析
- 效果不佳的可能原因

## 二、方案调整
1. 具体调整内容（药物、剂量等）
2. 调整依据
3. 证据等级

## 三、调整逻辑说明
- 为什么需要这样调整
- 预期效果

## 四、新的随访计划
- 下次评估时间
- 关注指标

请确保所有调整都有循证依据支持。`,
		duration, FormatProfile(profile), req.CurrentPlan, req.TreatmentResponse, duration)

	result := &AdjustedPlan{
		PatientID:         req.PatientID,
		OriginalPlan:      req.CurrentPlan,
		TreatmentResponse: req.TreatmentResponse,
		Duration:          duration,
		AdjustedPlan:      s.generate(ctx, prompt),
		Sources:           hitSources(hits, 3),
	}
	s.log.Info().Msg("治疗方案调整完成")
	return result, nil
}

// SOAPConsult runs a structured consultation. The model either asks for
// missing information or emits a complete SOAP record.
func (s *Service) SOAPConsult(ctx context.Context, req ConsultRequest) (*ConsultResult, error) {
	s.log.Info().Str("chief_complaint", truncateRunes(req.ChiefComplaint, 30)).Msg("开始SOAP问诊")

	patientContext := ""
	if req.PatientID != "" {
		profile, err := s.profiles.BuildProfile(ctx, req.PatientID)
		switch {
		case errors.Is(err, patient.ErrNotFound):
		case err != nil:
			return nil, err
		default:
			patientContext = FormatProfile(profile)
		}
	}

	prompt := fmt.Sprintf(`你是一位经验丰富的临床医生，正在对患者进行问诊。

患者主诉: %s

患者背景信息:
%s

对话历史:
%s

请按照SOAP格式进行问诊。如果信息不足以完成评估，请提出需要澄清的问题。

【信息完整性检查】
对于"头晕"等症状，需要了解：
- 症状特点（性质、持续时间、频率）
- 伴随症状（头痛、恶心、视物模糊等）
- 诱发/缓解因素
- 血压等生命体征数值
- 既往病史、用药史

如果以上关键信息缺失，请提出具体问题。如果信息足够，请生成完整的SOAP记录。

请回复格式：
如果需要追问：
[NEED_MORE_INFO]
问题：[具体问题列表]

如果信息足够：
[SOAP_COMPLETE]
S (Subjective 主观资料):
O (Objective 客观资料):
A (Assessment 评估):
P (Plan 计划):`,
		req.ChiefComplaint,
		orDefault(patientContext, "暂无"),
		orDefault(formatHistory(req.History), "无"))

	response := s.generate(ctx, prompt)

	result := &ConsultResult{ChiefComplaint: req.ChiefComplaint}
	if _, questions, found := strings.Cut(response, "[NEED_MORE_INFO]"); found {
		result.Status = ConsultNeedClarification
		result.Questions = strings.TrimSpace(questions)
	} else {
		soap := response
		if _, rest, found := strings.Cut(response, "[SOAP_COMPLETE]"); found {
			soap = rest
		}
		result.Status = ConsultComplete
		result.SOAPRecord = strings.TrimSpace(soap)
	}
	s.log.Info().Str("status", result.Status).Msg("SOAP问诊完成")
	return result, nil
}

// formatHistory renders the last ten turns as doctor/patient lines.
func formatHistory(history []llm.Message) string {
	if len(history) > 10 {
		history = history[len(history)-10:]
	}
	var lines []string
	for _, msg := range history {
		role := "患者"
		if msg.Role == "assistant" {
			role = "医生"
		}
		lines = append(lines, role+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

// ProcessEmergency triages a possible hypertensive emergency. The crisis
// determination is rule-based; the model only adds handling guidance.
func (s *Service) ProcessEmergency(ctx context.Context, req EmergencyRequest) (*EmergencyResult, error) {
	s.log.Info().Str("symptoms", truncateRunes(req.Symptoms, 50)).Msg("处理紧急情况")

	sbp, dbp := 0, 0
	if req.VitalSigns.SBP != nil {
		sbp = *req.VitalSigns.SBP
	}
	if req.VitalSigns.DBP != nil {
		dbp = *req.VitalSigns.DBP
	}
	isEmergency := sbp >= 180 || dbp >= 120

	hasDanger := false
	for _, symptom := range dangerSymptoms {
		if strings.Contains(req.Symptoms, symptom) {
			hasDanger = true
			break
		}
	}

	hits := s.search(ctx, "高血压急症 紧急处理 静脉降压", 3)

	prompt := fmt.Sprintf(`紧急评估请求：

【症状】
%s

【生命体征】
- 血压: %d/%d mmHg
- 心率: %s 次/分

【初步判断】
- 是否高血压急症: %s
- 是否有危险症状: %s

请提供：
1. 紧急程度判断（危急/紧急/一般）
2. 是否需要转诊
3. 立即需要采取的措施
4. 相关指南依据（2023版）`,
		req.Symptoms, sbp, dbp, intOrNA(req.VitalSigns.HeartRate),
		yesNo(isEmergency), yesNo(hasDanger))

	result := &EmergencyResult{
		IsEmergency:       isEmergency,
		HasDangerSymptoms: hasDanger,
		VitalSigns:        req.VitalSigns,
		Symptoms:          req.Symptoms,
		Response:          s.generate(ctx, prompt),
		RequiresReferral:  isEmergency && hasDanger,
		Sources:           hitSources(hits, 3),
	}
	if isEmergency {
		result.ReferralDepartment = "急诊科"
		result.ImmediateActions = []string{
			"1. 保持患者安静，取半卧位",
			"2. 立即建立静脉通路",
			"3. 给予静脉降压药物（遵医嘱）",
			"4. 目标：1小时内降压不超过25%",
			"5. 紧急转诊至急诊科",
		}
	}
	s.log.Info().Bool("is_emergency", isEmergency).Msg("紧急情况处理完成")
	return result, nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "是"
	}
	return "否"
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
