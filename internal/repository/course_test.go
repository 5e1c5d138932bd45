package repository

import (
	"context"
	"testing"

	"unitoku/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseRepository_ListIsOwnerScopedAndSorted(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	me := createUser(t, db, "me")
	other := createUser(t, db, "other")

	repo := NewCourseRepository(db)
	for _, c := range []models.Course{
		{UserID: me.ID, Name: "Statistics", Professor: "Sato", Room: "B201", Weekday: models.Tuesday, Period: 2, Color: "pink"},
		{UserID: me.ID, Name: "Algorithms", Professor: "Tanaka", Room: "A101", Weekday: models.Monday, Period: 1, Color: "blue"},
		{UserID: me.ID, Name: "Linear Algebra", Professor: "Suzuki", Room: "A102", Weekday: models.Monday, Period: 3, Color: "mint"},
		{UserID: other.ID, Name: "Art History", Professor: "Ito", Room: "C1", Weekday: models.Monday, Period: 1, Color: "teal"},
	} {
		require.NoError(t, repo.Create(ctx, &c))
	}

	names := func(cs []models.Course) []string {
		out := make([]string, len(cs))
		for i, c := range cs {
			out[i] = c.Name
		}
		return out
	}

	tests := []struct {
		name   string
		filter CourseFilter
		want   []string
	}{
		{"all", CourseFilter{}, []string{"Algorithms", "Linear Algebra", "Statistics"}},
		{"weekday", CourseFilter{Weekday: models.Monday}, []string{"Algorithms", "Linear Algebra"}},
		{"professor", CourseFilter{Query: "tanaka"}, []string{"Algorithms"}},
		{"room", CourseFilter{Query: "a10"}, []string{"Algorithms", "Linear Algebra"}},
		{"weekday and query", CourseFilter{Weekday: models.Tuesday, Query: "a10"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, me.ID, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestCourseRepository_UpdateAndDelete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	me := createUser(t, db, "me")

	repo := NewCourseRepository(db)
	course := &models.Course{UserID: me.ID, Name: "Physics", Weekday: models.Friday, Period: 5, Color: "blue"}
	require.NoError(t, repo.Create(ctx, course))

	course.Room = "Hall 3"
	course.Period = 6
	require.NoError(t, repo.Update(ctx, course))

	got, err := repo.GetByID(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hall 3", got.Room)
	assert.Equal(t, 6, got.Period)

	evals := NewEvaluationRepository(db)
	eval := &models.CourseEvaluation{CourseID: course.ID, UserID: me.ID, OverallScore: 4, DifficultyScore: 4,
		AssignmentsScore: 4, TeachingScore: 4, GradingScore: 4}
	require.NoError(t, evals.Create(ctx, eval))

	require.NoError(t, repo.Delete(ctx, course.ID))
	_, err = repo.GetByID(ctx, course.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
	_, err = evals.GetByID(ctx, eval.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	err = repo.Delete(ctx, course.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestEvaluationRepository_ListAndAverage(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	me := createUser(t, db, "me")
	course := &models.Course{UserID: me.ID, Name: "Economics", Weekday: models.Wednesday, Period: 2, Color: "green"}
	require.NoError(t, db.Create(course).Error)

	repo := NewEvaluationRepository(db)

	avg, err := repo.Average(ctx, course.ID)
	require.NoError(t, err)
	assert.Nil(t, avg)

	first := &models.CourseEvaluation{CourseID: course.ID, UserID: me.ID, Semester: "2025 spring",
		OverallScore: 5, DifficultyScore: 5, AssignmentsScore: 5, TeachingScore: 5, GradingScore: 5}
	require.NoError(t, repo.Create(ctx, first))
	second := &models.CourseEvaluation{CourseID: course.ID, UserID: me.ID, Semester: "2025 fall",
		OverallScore: 2, DifficultyScore: 3, AssignmentsScore: 3, TeachingScore: 3, GradingScore: 4}
	require.NoError(t, repo.Create(ctx, second))

	avg, err = repo.Average(ctx, course.ID)
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, (5.0+3.0)/2, *avg, 1e-9)

	list, err := repo.ListByCourse(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
}
