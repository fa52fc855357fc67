package diagnosis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cdss/cdss/internal/domain/knowledge"
	"github.com/cdss/cdss/internal/domain/patient"
	"github.com/cdss/cdss/internal/domain/risk"
	"github.com/cdss/cdss/internal/domain/safety"
	"github.com/cdss/cdss/internal/domain/terminology"
	"github.com/cdss/cdss/internal/platform/llm"
)

type fakeProfiles struct {
	profiles map[string]*patient.Profile
}

func (f *fakeProfiles) BuildProfile(_ context.Context, patientID string) (*patient.Profile, error) {
	if p, ok := f.profiles[patientID]; ok {
		return p, nil
	}
	return nil, patient.ErrNotFound
}

type fakeSearcher struct {
	hits    []knowledge.Hit
	queries []string
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, query string, topK int) (*knowledge.SearchResult, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	hits := f.hits
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return &knowledge.SearchResult{Query: query, Hits: hits}, nil
}

type fakeLLM struct {
	reply   string
	err     error
	prompts []string
	system  string
}

func (f *fakeLLM) Generate(_ context.Context, prompt, systemPrompt string, _ []llm.Message) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.system = systemPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func strPtr(s string) *string { return &s }

func testProfile() *patient.Profile {
	return &patient.Profile{
		Info: patient.Info{
			PatientID: "P001",
			Name:      "王建国",
			Gender:    "男",
			Age:       58,
			BMI:       floatPtr(26.5),
		},
		Diagnoses: []patient.Diagnosis{
			{DiagnosisName: "原发性高血压", DiagnosisType: strPtr("主要诊断")},
			{DiagnosisName: "2型糖尿病", DiagnosisType: strPtr("主要诊断")},
		},
		Medications: []patient.Medication{
			{DrugName: "氨氯地平", DrugClass: "CCB类", Dosage: strPtr("5mg"), Frequency: strPtr("每日一次")},
			{DrugName: "二甲双胍", DrugClass: "双胍类", Dosage: strPtr("500mg"), Frequency: strPtr("每日两次")},
		},
		Hypertension: &patient.HypertensionAssessment{
			SBP: intPtr(150), DBP: intPtr(95),
			RiskFactors: "吸烟",
		},
		Diabetes: &patient.DiabetesAssessment{
			FastingGlucose: floatPtr(8.2),
			HbA1c:          floatPtr(7.8),
		},
	}
}

func newTestService(profiles *fakeProfiles, searcher *fakeSearcher, gen *fakeLLM) *Service {
	log := zerolog.Nop()
	return NewService(profiles, searcher, risk.NewEngine(log), safety.NewGuard(log),
		terminology.NewMapper(log), gen, log)
}

func TestAssessRisk(t *testing.T) {
	profiles := &fakeProfiles{profiles: map[string]*patient.Profile{"P001": testProfile()}}
	searcher := &fakeSearcher{hits: []knowledge.Hit{
		{Content: "[指南] 血压控制目标", Source: knowledge.HitSource{Type: "guideline", RuleID: 1}, Score: 0.8},
	}}
	gen := &fakeLLM{reply: "该患者为高血压合并糖尿病，建议..."}
	svc := newTestService(profiles, searcher, gen)

	result, err := svc.AssessRisk(context.Background(), "P001")
	if err != nil {
		t.Fatalf("AssessRisk: %v", err)
	}
	if result.Assessment == nil || result.Assessment.OverallRiskLevel < risk.LevelHigh {
		t.Errorf("assessment = %+v", result.Assessment)
	}
	if result.Interpretation != "该患者为高血压合并糖尿病，建议..." {
		t.Errorf("interpretation = %q", result.Interpretation)
	}
	if len(result.Sources) != 1 || result.Sources[0].RuleID != 1 {
		t.Errorf("sources = %+v", result.Sources)
	}
	if gen.system != llm.MedicalSystemPrompt {
		t.Error("system prompt not applied")
	}
	if len(searcher.queries) != 1 || !strings.HasPrefix(searcher.queries[0], "高血压风险评估 ") {
		t.Errorf("search queries = %v", searcher.queries)
	}
	if !strings.Contains(gen.prompts[0], "总体风险等级") || !strings.Contains(gen.prompts[0], "【患者基本信息】") {
		t.Errorf("prompt missing sections:\n%s", gen.prompts[0])
	}
}

func TestAssessRiskPatientNotFound(t *testing.T) {
	svc := newTestService(&fakeProfiles{}, &fakeSearcher{}, &fakeLLM{})

	_, err := svc.AssessRisk(context.Background(), "missing")
	if !errors.Is(err, patient.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLLMFailureDegradesToApology(t *testing.T) {
	profiles := &fakeProfiles{profiles: map[string]*patient.Profile{"P001": testProfile()}}
	gen := &fakeLLM{err: errors.New("connection refused")}
	svc := newTestService(profiles, &fakeSearcher{}, gen)

	result, err := svc.AssessRisk(context.Background(), "P001")
	if err != nil {
		t.Fatalf("AssessRisk: %v", err)
	}
	if !strings.HasPrefix(result.Interpretation, "抱歉，AI服务暂时不可用，请稍后重试。") {
		t.Errorf("interpretation = %q", result.Interpretation)
	}
	if !strings.Contains(result.Interpretation, "connection refused") {
		t.Errorf("interpretation should carry the cause, got %q", result.Interpretation)
	}
	// the deterministic part of the answer is unaffected
	if result.Assessment == nil {
		t.Error("assessment missing")
	}
}

func TestSearchFailureDoesNotFailRequest(t *testing.T) {
	profiles := &fakeProfiles{profiles: map[string]*patient.Profile{"P001": testProfile()}}
	searcher := &fakeSearcher{err: errors.New("db down")}
	gen := &fakeLLM{reply: "解读"}
	svc := newTestService(profiles, searcher, gen)

	result, err := svc.AssessRisk(context.Background(), "P001")
	if err != nil {
		t.Fatalf("AssessRisk: %v", err)
	}
	if len(result.Sources) != 0 {
		t.Errorf("sources = %+v, want none", result.Sources)
	}
}

func TestCheckDrugConflicts(t *testing.T) {
	profile := testProfile()
	profile.Medications = append(profile.Medications, patient.Medication{
		DrugName: "卡托普利", DrugClass: "ACEI类",
	}, patient.Medication{
		DrugName: "螺内酯", DrugClass: "保钾利尿剂",
	})
	profiles := &fakeProfiles{profiles: map[string]*patient.Profile{"P001": profile}}
	searcher := &fakeSearcher{}
	gen := &fakeLLM{reply: "存在ACEI与保钾利尿剂联用风险"}
	svc := newTestService(profiles, searcher, gen)

	result, err := svc.CheckDrugConflicts(context.Background(), "P001")
	if err != nil {
		t.Fatalf("CheckDrugConflicts: %v", err)
	}
	if !result.HasConflicts {
		t.Error("expected conflicts for ACEI + potassium-sparing diuretic")
	}
	if len(result.CurrentMedications) != 4 {
		t.Errorf("medications = %d", len(result.CurrentMedications))
	}
	if !strings.HasPrefix(searcher.queries[0], "药物相互作用 禁忌 ") {
		t.Errorf("search query = %q", searcher.queries[0])
	}
	if !strings.Contains(gen.prompts[0], "- 氨氯地平 5mg 每日一次") {
		t.Errorf("prompt missing medication lines:\n%s", gen.prompts[0])
	}
}

func TestGenerateDiagnosisNormalizesSymptoms(t *testing.T) {
	searcher := &fakeSearcher{hits: []knowledge.Hit{
		{Content: "[指南] 心悸的鉴别", Source: knowledge.HitSource{RuleID: 2}},
	}}
	gen := &fakeLLM{reply: "## 鉴别诊断列表..."}
	svc := newTestService(&fakeProfiles{}, searcher, gen)

	result, err := svc.GenerateDiagnosis(context.Background(), DiagnosisRequest{
		Symptoms: "患者自述心慌气短",
		ExamData: &ExamData{SBP: intPtr(150), DBP: intPtr(95), HbA1c: floatPtr(7.8)},
	})
	if err != nil {
		t.Fatalf("GenerateDiagnosis: %v", err)
	}
	if result.Input.NormalizedSymptoms != "患者自述心悸呼吸困难" {
		t.Errorf("normalized = %q", result.Input.NormalizedSymptoms)
	}
	if len(result.TermMappings) != 2 {
		t.Errorf("term mappings = %+v", result.TermMappings)
	}
	if searcher.queries[0] != "鉴别诊断 患者自述心悸呼吸困难" {
		t.Errorf("search query = %q", searcher.queries[0])
	}
	if !strings.Contains(gen.prompts[0], "血压: 150/95 mmHg") || !strings.Contains(gen.prompts[0], "HbA1c: 7.8%") {
		t.Errorf("prompt missing exam data:\n%s", gen.prompts[0])
	}
	if !strings.Contains(gen.prompts[0], "【患者背景】\n暂无") {
		t.Errorf("prompt should mark missing patient background:\n%s", gen.prompts[0])
	}
}

func TestGenerateDiagnosisUnknownPatientDegrades(t *testing.T) {
	gen := &fakeLLM{reply: "结果"}
	svc := newTestService(&fakeProfiles{}, &fakeSearcher{}, gen)

	_, err := svc.GenerateDiagnosis(context.Background(), DiagnosisRequest{
		Symptoms:  "头晕",
		PatientID: "ghost",
	})
	if err != nil {
		t.Fatalf("unknown patient should not fail an ad-hoc diagnosis: %v", err)
	}
}

func TestGenerateTreatmentPlanRequiresPatient(t *testing.T) {
	svc := newTestService(&fakeProfiles{}, &fakeSearcher{}, &fakeLLM{})

	_, err := svc.GenerateTreatmentPlan(context.Background(), TreatmentPlanRequest{})
	if !errors.Is(err, ErrNoPatient) {
		t.Fatalf("err = %v, want ErrNoPatient", err)
	}
}

func TestGenerateTreatmentPlanWithInlineProfile(t *testing.T) {
	searcher := &fakeSearcher{hits: []knowledge.Hit{
		{Content: "[指南] 联合用药", EvidenceLevel: "ⅠA", Source: knowledge.HitSource{RuleID: 3}},
	}}
	gen := &fakeLLM{reply: "## 一、治疗目标..."}
	svc := newTestService(&fakeProfiles{}, searcher, gen)

	result, err := svc.GenerateTreatmentPlan(context.Background(), TreatmentPlanRequest{
		Diagnosis: "原发性高血压",
		Profile:   testProfile(),
	})
	if err != nil {
		t.Fatalf("GenerateTreatmentPlan: %v", err)
	}
	if result.RiskAssessment == nil || result.SafetyCheck == nil {
		t.Fatal("missing deterministic sections")
	}
	if result.Plan != "## 一、治疗目标..." {
		t.Errorf("plan = %q", result.Plan)
	}
	if !strings.Contains(gen.prompts[0], "[指南推荐 ⅠA] [指南] 联合用药") {
		t.Errorf("prompt missing guideline context:\n%s", gen.prompts[0])
	}
	if !strings.HasPrefix(searcher.queries[0], "治疗方案 原发性高血压 ") {
		t.Errorf("search query = %q", searcher.queries[0])
	}
}

func TestGenerateTreatmentPlanSurfacesSafetyWarnings(t *testing.T) {
	profile := testProfile()
	profile.Hypertension.SBP = intPtr(190)
	profiles := &fakeProfiles{profiles: map[string]*patient.Profile{"P001": profile}}
	gen := &fakeLLM{reply: "方案"}
	svc := newTestService(profiles, &fakeSearcher{}, gen)

	result, err := svc.GenerateTreatmentPlan(context.Background(), TreatmentPlanRequest{PatientID: "P001"})
	if err != nil {
		t.Fatalf("GenerateTreatmentPlan: %v", err)
	}
	if len(result.SafetyCheck.EmergencyAlerts) == 0 {
		t.Fatal("expected an emergency alert at 190 mmHg")
	}
	if !strings.Contains(gen.prompts[0], "⚠️ 紧急警报:") {
		t.Errorf("prompt missing emergency warnings:\n%s", gen.prompts[0])
	}
}

func TestAdjustTreatmentDefaultsDuration(t *testing.T) {
	profiles := &fakeProfiles{profiles: map[string]*patient.Profile{"P001": testProfile()}}
	gen := &fakeLLM{reply: "## 一、疗效评估..."}
	svc := newTestService(profiles, &fakeSearcher{}, gen)

	result, err := svc.AdjustTreatment(context.Background(), AdjustmentRequest{
		PatientID:         "P001",
		CurrentPlan:       "氨氯地平 5mg qd",
		TreatmentResponse: "血压仍然150/95",
	})
	if err != nil {
		t.Fatalf("AdjustTreatment: %v", err)
	}
	if result.Duration != "2周" {
		t.Errorf("duration = %q, want 2周", result.Duration)
	}
	if result.OriginalPlan != "氨氯地平 5mg qd" {
		t.Errorf("original plan = %q", result.OriginalPlan)
	}
	if !strings.HasPrefix(gen.prompts[0], "患者治疗2周后效果不佳") {
		t.Errorf("prompt = %q", gen.prompts[0][:30])
	}
}

func TestSOAPConsultNeedsClarification(t *testing.T) {
	gen := &fakeLLM{reply: "[NEED_MORE_INFO]\n问题：\n1. 头晕持续多久了？\n2. 是否伴随头痛？"}
	svc := newTestService(&fakeProfiles{}, &fakeSearcher{}, gen)

	result, err := svc.SOAPConsult(context.Background(), ConsultRequest{ChiefComplaint: "最近总是头晕"})
	if err != nil {
		t.Fatalf("SOAPConsult: %v", err)
	}
	if result.Status != ConsultNeedClarification {
		t.Errorf("status = %q", result.Status)
	}
	if !strings.Contains(result.Questions, "头晕持续多久了") {
		t.Errorf("questions = %q", result.Questions)
	}
	if result.SOAPRecord != "" {
		t.Errorf("unexpected soap record %q", result.SOAPRecord)
	}
}

func TestSOAPConsultComplete(t *testing.T) {
	gen := &fakeLLM{reply: "[SOAP_COMPLETE]\nS (Subjective 主观资料): 头晕3天\nO (Objective 客观资料): 血压150/95\nA (Assessment 评估): 高血压病\nP (Plan 计划): 调整用药"}
	svc := newTestService(&fakeProfiles{}, &fakeSearcher{}, gen)

	result, err := svc.SOAPConsult(context.Background(), ConsultRequest{
		ChiefComplaint: "头晕3天",
		History: []llm.Message{
			{Role: "user", Content: "我最近头晕"},
			{Role: "assistant", Content: "持续多久了？"},
			{Role: "user", Content: "3天了，血压150/95"},
		},
	})
	if err != nil {
		t.Fatalf("SOAPConsult: %v", err)
	}
	if result.Status != ConsultComplete {
		t.Errorf("status = %q", result.Status)
	}
	if !strings.HasPrefix(result.SOAPRecord, "S (Subjective 主观资料):") {
		t.Errorf("soap record = %q", result.SOAPRecord)
	}
	if !strings.Contains(gen.prompts[0], "医生: 持续多久了？") || !strings.Contains(gen.prompts[0], "患者: 我最近头晕") {
		t.Errorf("prompt missing conversation history:\n%s", gen.prompts[0])
	}
}

func TestProcessEmergency(t *testing.T) {
	gen := &fakeLLM{reply: "危急，立即转诊"}
	svc := newTestService(&fakeProfiles{}, &fakeSearcher{}, gen)

	result, err := svc.ProcessEmergency(context.Background(), EmergencyRequest{
		Symptoms:   "剧烈头痛伴视物模糊",
		VitalSigns: VitalSigns{SBP: intPtr(195), DBP: intPtr(115), HeartRate: intPtr(98)},
	})
	if err != nil {
		t.Fatalf("ProcessEmergency: %v", err)
	}
	if !result.IsEmergency || !result.HasDangerSymptoms {
		t.Errorf("triage = %+v", result)
	}
	if !result.RequiresReferral || result.ReferralDepartment != "急诊科" {
		t.Errorf("referral = %v %q", result.RequiresReferral, result.ReferralDepartment)
	}
	if len(result.ImmediateActions) != 5 {
		t.Errorf("immediate actions = %v", result.ImmediateActions)
	}
	if !strings.Contains(gen.prompts[0], "血压: 195/115 mmHg") || !strings.Contains(gen.prompts[0], "心率: 98 次/分") {
		t.Errorf("prompt missing vitals:\n%s", gen.prompts[0])
	}
}

func TestProcessEmergencyNonCritical(t *testing.T) {
	gen := &fakeLLM{reply: "一般情况"}
	svc := newTestService(&fakeProfiles{}, &fakeSearcher{}, gen)

	result, err := svc.ProcessEmergency(context.Background(), EmergencyRequest{
		Symptoms:   "轻度乏力",
		VitalSigns: VitalSigns{SBP: intPtr(150), DBP: intPtr(92)},
	})
	if err != nil {
		t.Fatalf("ProcessEmergency: %v", err)
	}
	if result.IsEmergency || result.HasDangerSymptoms || result.RequiresReferral {
		t.Errorf("triage = %+v", result)
	}
	if result.ReferralDepartment != "" || len(result.ImmediateActions) != 0 {
		t.Errorf("unexpected emergency payload: %+v", result)
	}
}
