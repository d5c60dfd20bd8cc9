package services_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mapmystandards/a3e/modules/standards/domain/standard"
	"github.com/mapmystandards/a3e/modules/standards/services"
)

func strPtr(s string) *string { return &s }

func planInput(nodes []standard.ItemInput) services.ImportInput {
	return services.ImportInput{Key: "hlc", Name: "HLC Criteria", Nodes: nodes}
}

func requireServiceError(t *testing.T, err error, status int, code string) {
	t.Helper()
	require.Error(t, err)
	var se *services.ServiceError
	require.ErrorAs(t, err, &se)
	require.Equal(t, status, se.Status)
	require.Equal(t, code, se.Code)
}

func TestPlan_DerivesLevelsAndPaths(t *testing.T) {
	svc := services.NewStandardsService(nil, services.ImportLimits{})

	// children listed before their parents on purpose
	nodes := []standard.ItemInput{
		{Code: "1.1.1", Title: "Sub-criterion", ParentCode: strPtr("1.1")},
		{Code: "1", Title: "Criterion One"},
		{Code: "1.1", Title: "Core Component", ParentCode: strPtr("1")},
	}

	plan, err := svc.Plan(planInput(nodes))
	require.NoError(t, err)
	require.Len(t, plan, 3)

	// sorted by level, parents first
	require.Equal(t, "1", plan[0].Code)
	require.Equal(t, 0, plan[0].Level)
	require.Equal(t, "1", plan[0].Path)

	require.Equal(t, "1.1", plan[1].Code)
	require.Equal(t, 1, plan[1].Level)
	require.Equal(t, "1/1.1", plan[1].Path)

	require.Equal(t, "1.1.1", plan[2].Code)
	require.Equal(t, 2, plan[2].Level)
	require.Equal(t, "1/1.1/1.1.1", plan[2].Path)
}

func TestPlan_RootsOnly(t *testing.T) {
	svc := services.NewStandardsService(nil, services.ImportLimits{})

	plan, err := svc.Plan(planInput([]standard.ItemInput{
		{Code: "A", Title: "Alpha"},
		{Code: "B", Title: "Beta"},
		{Code: "C", Title: "Gamma"},
	}))
	require.NoError(t, err)
	require.Len(t, plan, 3)
	for _, n := range plan {
		require.Equal(t, 0, n.Level)
		require.Equal(t, n.Code, n.Path)
		require.Nil(t, n.ParentCode)
	}
}

func TestPlan_WhitespaceParentMeansRoot(t *testing.T) {
	svc := services.NewStandardsService(nil, services.ImportLimits{})

	plan, err := svc.Plan(planInput([]standard.ItemInput{
		{Code: "A", Title: "Alpha", ParentCode: strPtr("   ")},
	}))
	require.NoError(t, err)
	require.Len(t, plan, 1)
	require.Equal(t, 0, plan[0].Level)
	require.Nil(t, plan[0].ParentCode)
}

func TestPlan_TrimsCodesAndTitles(t *testing.T) {
	svc := services.NewStandardsService(nil, services.ImportLimits{})

	plan, err := svc.Plan(planInput([]standard.ItemInput{
		{Code: " 1 ", Title: " Criterion One "},
		{Code: "1.1", Title: "Core Component", ParentCode: strPtr(" 1 ")},
	}))
	require.NoError(t, err)
	require.Equal(t, "1", plan[0].Code)
	require.Equal(t, "Criterion One", plan[0].Title)
	require.Equal(t, "1/1.1", plan[1].Path)
}

func TestPlan_RejectsEmptyCodeOrTitle(t *testing.T) {
	svc := services.NewStandardsService(nil, services.ImportLimits{})

	_, err := svc.Plan(planInput([]standard.ItemInput{{Code: "", Title: "Criterion"}}))
	requireServiceError(t, err, 400, "STD_INVALID_BODY")

	_, err = svc.Plan(planInput([]standard.ItemInput{{Code: "1", Title: "   "}}))
	requireServiceError(t, err, 400, "STD_INVALID_BODY")
}

func TestPlan_RejectsDuplicateCodes(t *testing.T) {
	svc := services.NewStandardsService(nil, services.ImportLimits{})

	_, err := svc.Plan(planInput([]standard.ItemInput{
		{Code: "1", Title: "Criterion One"},
		{Code: "1", Title: "Criterion One Again"},
	}))
	requireServiceError(t, err, 400, "STD_DUPLICATE_CODE")
}

func TestPlan_RejectsUnknownParent(t *testing.T) {
	svc := services.NewStandardsService(nil, services.ImportLimits{})

	_, err := svc.Plan(planInput([]standard.ItemInput{
		{Code: "1.1", Title: "Core Component", ParentCode: strPtr("1")},
	}))
	requireServiceError(t, err, 400, "STD_PARENT_NOT_FOUND")
}

func TestPlan_RejectsCycle(t *testing.T) {
	svc := services.NewStandardsService(nil, services.ImportLimits{})

	_, err := svc.Plan(planInput([]standard.ItemInput{
		{Code: "A", Title: "Alpha", ParentCode: strPtr("B")},
		{Code: "B", Title: "Beta", ParentCode: strPtr("A")},
	}))
	requireServiceError(t, err, 400, "STD_CYCLE")
}

func TestPlan_RejectsSelfReference(t *testing.T) {
	svc := services.NewStandardsService(nil, services.ImportLimits{})

	_, err := svc.Plan(planInput([]standard.ItemInput{
		{Code: "A", Title: "Alpha", ParentCode: strPtr("A")},
	}))
	requireServiceError(t, err, 400, "STD_CYCLE")
}

func TestPlan_EnforcesDepthCap(t *testing.T) {
	svc := services.NewStandardsService(nil, services.ImportLimits{MaxDepth: 3})

	// levels 0..2 fit, the fourth link does not
	nodes := []standard.ItemInput{
		{Code: "A", Title: "Alpha"},
		{Code: "B", Title: "Beta", ParentCode: strPtr("A")},
		{Code: "C", Title: "Gamma", ParentCode: strPtr("B")},
		{Code: "D", Title: "Delta", ParentCode: strPtr("C")},
	}
	_, err := svc.Plan(planInput(nodes))
	requireServiceError(t, err, 400, "STD_DEPTH_EXCEEDED")

	_, err = svc.Plan(planInput(nodes[:3]))
	require.NoError(t, err)
}

func TestPlan_EnforcesBatchLimit(t *testing.T) {
	svc := services.NewStandardsService(nil, services.ImportLimits{MaxNodes: 2})

	_, err := svc.Plan(planInput([]standard.ItemInput{
		{Code: "A", Title: "Alpha"},
		{Code: "B", Title: "Beta"},
		{Code: "C", Title: "Gamma"},
	}))
	requireServiceError(t, err, 422, "STD_BATCH_TOO_LARGE")
}

func TestPlan_DeepChainWithinDefaultCap(t *testing.T) {
	svc := services.NewStandardsService(nil, services.ImportLimits{})

	nodes := make([]standard.ItemInput, 0, 64)
	prev := ""
	for i := 0; i < 64; i++ {
		code := string(rune('A'+i%26)) + "-" + string(rune('0'+i/26))
		n := standard.ItemInput{Code: code, Title: "Node"}
		if prev != "" {
			p := prev
			n.ParentCode = &p
		}
		nodes = append(nodes, n)
		prev = code
	}

	plan, err := svc.Plan(planInput(nodes))
	require.NoError(t, err)
	require.Equal(t, 63, plan[len(plan)-1].Level)

	extra := append(nodes, standard.ItemInput{Code: "Z-9", Title: "Too deep", ParentCode: strPtr(prev)})
	_, err = svc.Plan(planInput(extra))
	requireServiceError(t, err, 400, "STD_DEPTH_EXCEEDED")
}
