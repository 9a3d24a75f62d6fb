package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andile-m/brightclass-api/internal/models"
	appErrors "github.com/andile-m/brightclass-api/pkg/errors"
)

type mockLiveClassRepo struct {
	classes       map[string]models.LiveClassDetail
	created       *models.LiveClass
	updated       *models.LiveClass
	rosterRewrite bool
	deleted       []string
	studentLists  []models.LiveClassDetail
	teacherLists  []models.LiveClassDetail
	listStudentID string
	listNow       time.Time
}

func (m *mockLiveClassRepo) Create(ctx context.Context, class *models.LiveClass) error {
	if class.ID == "" {
		class.ID = "class-new"
	}
	m.created = class
	return nil
}

func (m *mockLiveClassRepo) FindDetailByID(ctx context.Context, id string) (*models.LiveClassDetail, error) {
	if detail, ok := m.classes[id]; ok {
		return &detail, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLiveClassRepo) ListUpcomingForStudent(ctx context.Context, studentID string, now time.Time) ([]models.LiveClassDetail, error) {
	m.listStudentID = studentID
	m.listNow = now
	return m.studentLists, nil
}

func (m *mockLiveClassRepo) ListUpcomingForInstructor(ctx context.Context, instructorID string, now time.Time) ([]models.LiveClassDetail, error) {
	m.listNow = now
	return m.teacherLists, nil
}

func (m *mockLiveClassRepo) Update(ctx context.Context, class *models.LiveClass, replaceRoster bool) error {
	m.updated = class
	m.rosterRewrite = replaceRoster
	return nil
}

func (m *mockLiveClassRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func instructorClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleInstructor}
}

func studentClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleStudent}
}

func validCreateRequest() CreateLiveClassRequest {
	start := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	return CreateLiveClassRequest{
		Title:       "Algebra Review",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		MeetingLink: "https://meet.example/abc",
		StudentIDs:  []string{"stu-1", "stu-2"},
	}
}

func seededDetail(id, instructorID string, students ...string) models.LiveClassDetail {
	start := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	return models.LiveClassDetail{
		LiveClass: models.LiveClass{
			ID:           id,
			Title:        "Algebra Review",
			Description:  "polynomials",
			StartTime:    start,
			EndTime:      start.Add(time.Hour),
			InstructorID: instructorID,
			MeetingLink:  "https://meet.example/abc",
			Status:       models.LiveClassScheduled,
			StudentIDs:   students,
		},
		Instructor: models.InstructorInfo{ID: instructorID, FirstName: "Ada", LastName: "Mwangi", Email: "ada@example.com"},
	}
}

func TestLiveClassCreateAssignsCallerAsInstructor(t *testing.T) {
	repo := &mockLiveClassRepo{}
	svc := NewLiveClassService(repo, nil, nil, nil, nil)

	class, err := svc.Create(context.Background(), instructorClaims("inst-1"), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, "inst-1", class.InstructorID)
	assert.Equal(t, models.LiveClassScheduled, class.Status)
	assert.Equal(t, "class-new", class.ID)
	require.NotNil(t, repo.created)
	assert.Equal(t, "inst-1", repo.created.InstructorID)
}

func TestLiveClassCreateRejectsInvertedTimeRange(t *testing.T) {
	repo := &mockLiveClassRepo{}
	svc := NewLiveClassService(repo, nil, nil, nil, nil)

	req := validCreateRequest()
	req.StartTime, req.EndTime = req.EndTime, req.StartTime

	_, err := svc.Create(context.Background(), instructorClaims("inst-1"), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestLiveClassCreateRejectsEqualStartAndEnd(t *testing.T) {
	repo := &mockLiveClassRepo{}
	svc := NewLiveClassService(repo, nil, nil, nil, nil)

	req := validCreateRequest()
	req.EndTime = req.StartTime

	_, err := svc.Create(context.Background(), instructorClaims("inst-1"), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestLiveClassCreateRejectsMissingFields(t *testing.T) {
	cases := map[string]func(*CreateLiveClassRequest){
		"missing title":        func(r *CreateLiveClassRequest) { r.Title = "" },
		"blank title":          func(r *CreateLiveClassRequest) { r.Title = "   " },
		"missing start":        func(r *CreateLiveClassRequest) { r.StartTime = time.Time{} },
		"missing end":          func(r *CreateLiveClassRequest) { r.EndTime = time.Time{} },
		"missing meeting link": func(r *CreateLiveClassRequest) { r.MeetingLink = "" },
		"empty roster":         func(r *CreateLiveClassRequest) { r.StudentIDs = nil },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			repo := &mockLiveClassRepo{}
			svc := NewLiveClassService(repo, nil, nil, nil, nil)

			req := validCreateRequest()
			mutate(&req)

			_, err := svc.Create(context.Background(), instructorClaims("inst-1"), req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
			assert.Nil(t, repo.created)
		})
	}
}

func TestLiveClassListUpcomingForStudentQueriesCallerRoster(t *testing.T) {
	repo := &mockLiveClassRepo{
		studentLists: []models.LiveClassDetail{seededDetail("class-1", "inst-1", "stu-1")},
	}
	svc := NewLiveClassService(repo, nil, nil, nil, nil)

	before := time.Now().UTC()
	classes, err := svc.ListUpcomingForStudent(context.Background(), studentClaims("stu-1"))
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "stu-1", repo.listStudentID)
	assert.False(t, repo.listNow.Before(before))
	assert.Equal(t, "Ada", classes[0].Instructor.FirstName)
}

func TestLiveClassListUpcomingForStudentEmptyIsNotAnError(t *testing.T) {
	repo := &mockLiveClassRepo{}
	svc := NewLiveClassService(repo, nil, nil, nil, nil)

	classes, err := svc.ListUpcomingForStudent(context.Background(), studentClaims("stu-9"))
	require.NoError(t, err)
	assert.Empty(t, classes)
}

func TestLiveClassGetByIDRequiresID(t *testing.T) {
	svc := NewLiveClassService(&mockLiveClassRepo{}, nil, nil, nil, nil)

	_, err := svc.GetByID(context.Background(), studentClaims("stu-1"), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLiveClassGetByIDUnknownIsNotFound(t *testing.T) {
	svc := NewLiveClassService(&mockLiveClassRepo{}, nil, nil, nil, nil)

	_, err := svc.GetByID(context.Background(), studentClaims("stu-1"), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestLiveClassGetByIDAllowsRosterMemberAndOwner(t *testing.T) {
	repo := &mockLiveClassRepo{classes: map[string]models.LiveClassDetail{
		"class-1": seededDetail("class-1", "inst-1", "stu-1", "stu-2"),
	}}
	svc := NewLiveClassService(repo, nil, nil, nil, nil)

	detail, err := svc.GetByID(context.Background(), studentClaims("stu-1"), "class-1")
	require.NoError(t, err)
	assert.Equal(t, "class-1", detail.ID)

	_, err = svc.GetByID(context.Background(), instructorClaims("inst-1"), "class-1")
	require.NoError(t, err)
}

func TestLiveClassGetByIDRejectsNonMember(t *testing.T) {
	repo := &mockLiveClassRepo{classes: map[string]models.LiveClassDetail{
		"class-1": seededDetail("class-1", "inst-1", "stu-1"),
	}}
	svc := NewLiveClassService(repo, nil, nil, nil, nil)

	_, err := svc.GetByID(context.Background(), studentClaims("stu-99"), "class-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestLiveClassUpdateRejectsNonOwner(t *testing.T) {
	repo := &mockLiveClassRepo{classes: map[string]models.LiveClassDetail{
		"class-1": seededDetail("class-1", "inst-1", "stu-1"),
	}}
	svc := NewLiveClassService(repo, nil, nil, nil, nil)

	title := "Hijacked"
	_, err := svc.Update(context.Background(), instructorClaims("inst-2"), UpdateLiveClassRequest{ClassID: "class-1", Title: &title})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.updated)
}

func TestLiveClassUpdateTitleOnlyLeavesOtherFields(t *testing.T) {
	seeded := seededDetail("class-1", "inst-1", "stu-1", "stu-2")
	repo := &mockLiveClassRepo{classes: map[string]models.LiveClassDetail{"class-1": seeded}}
	svc := NewLiveClassService(repo, nil, nil, nil, nil)

	title := "Geometry Review"
	detail, err := svc.Update(context.Background(), instructorClaims("inst-1"), UpdateLiveClassRequest{ClassID: "class-1", Title: &title})
	require.NoError(t, err)

	assert.Equal(t, "Geometry Review", detail.Title)
	assert.Equal(t, seeded.Description, detail.Description)
	assert.Equal(t, seeded.StartTime, detail.StartTime)
	assert.Equal(t, seeded.EndTime, detail.EndTime)
	assert.Equal(t, seeded.MeetingLink, detail.MeetingLink)
	assert.Equal(t, seeded.StudentIDs, detail.StudentIDs)
	assert.False(t, repo.rosterRewrite)
}

func TestLiveClassUpdateRevalidatesEffectiveTimeRange(t *testing.T) {
	seeded := seededDetail("class-1", "inst-1", "stu-1")
	repo := &mockLiveClassRepo{classes: map[string]models.LiveClassDetail{"class-1": seeded}}
	svc := NewLiveClassService(repo, nil, nil, nil, nil)

	// New start is after the stored end; the patch alone looks fine but the
	// effective pair is inverted.
	start := seeded.EndTime.Add(time.Hour)
	_, err := svc.Update(context.Background(), instructorClaims("inst-1"), UpdateLiveClassRequest{ClassID: "class-1", StartTime: &start})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.updated)
}

func TestLiveClassUpdateClearsDescriptionWhenSuppliedEmpty(t *testing.T) {
	seeded := seededDetail("class-1", "inst-1", "stu-1")
	repo := &mockLiveClassRepo{classes: map[string]models.LiveClassDetail{"class-1": seeded}}
	svc := NewLiveClassService(repo, nil, nil, nil, nil)

	empty := ""
	detail, err := svc.Update(context.Background(), instructorClaims("inst-1"), UpdateLiveClassRequest{ClassID: "class-1", Description: &empty})
	require.NoError(t, err)
	assert.Empty(t, detail.Description)
}

func TestLiveClassUpdateRejectsEmptyRoster(t *testing.T) {
	seeded := seededDetail("class-1", "inst-1", "stu-1")
	repo := &mockLiveClassRepo{classes: map[string]models.LiveClassDetail{"class-1": seeded}}
	svc := NewLiveClassService(repo, nil, nil, nil, nil)

	_, err := svc.Update(context.Background(), instructorClaims("inst-1"), UpdateLiveClassRequest{ClassID: "class-1", StudentIDs: []string{}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLiveClassUpdateReplacesRoster(t *testing.T) {
	seeded := seededDetail("class-1", "inst-1", "stu-1")
	repo := &mockLiveClassRepo{classes: map[string]models.LiveClassDetail{"class-1": seeded}}
	svc := NewLiveClassService(repo, nil, nil, nil, nil)

	detail, err := svc.Update(context.Background(), instructorClaims("inst-1"), UpdateLiveClassRequest{ClassID: "class-1", StudentIDs: []string{"stu-3", "stu-4"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"stu-3", "stu-4"}, detail.StudentIDs)
	assert.True(t, repo.rosterRewrite)
}

func TestLiveClassDeleteRejectsNonOwner(t *testing.T) {
	repo := &mockLiveClassRepo{classes: map[string]models.LiveClassDetail{
		"class-1": seededDetail("class-1", "inst-1", "stu-1"),
	}}
	svc := NewLiveClassService(repo, nil, nil, nil, nil)

	err := svc.Delete(context.Background(), instructorClaims("inst-2"), "class-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestLiveClassDeleteByOwner(t *testing.T) {
	repo := &mockLiveClassRepo{classes: map[string]models.LiveClassDetail{
		"class-1": seededDetail("class-1", "inst-1", "stu-1"),
	}}
	svc := NewLiveClassService(repo, nil, nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), instructorClaims("inst-1"), "class-1"))
	assert.Equal(t, []string{"class-1"}, repo.deleted)
}

func TestLiveClassExportScheduleCSV(t *testing.T) {
	repo := &mockLiveClassRepo{
		teacherLists: []models.LiveClassDetail{seededDetail("class-1", "inst-1", "stu-1", "stu-2")},
	}
	svc := NewLiveClassService(repo, nil, nil, nil, nil)

	out, err := svc.ExportSchedule(context.Background(), instructorClaims("inst-1"), ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", out.ContentType)
	assert.Contains(t, string(out.Content), "Algebra Review")
	assert.Contains(t, string(out.Content), "2024-01-10 10:00")
}

func TestLiveClassExportScheduleRejectsUnknownFormat(t *testing.T) {
	svc := NewLiveClassService(&mockLiveClassRepo{}, nil, nil, nil, nil)

	_, err := svc.ExportSchedule(context.Background(), instructorClaims("inst-1"), ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
