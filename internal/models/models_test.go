package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewNotFoundError("Post", 1), http.StatusNotFound},
		{NewValidationError("bad"), http.StatusBadRequest},
		{NewUnauthorizedError("no"), http.StatusUnauthorized},
		{NewForbiddenError("no"), http.StatusForbidden},
		{NewConflictError("dup"), http.StatusConflict},
		{NewInternalError(errors.New("x")), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NewNotFoundError("Course", 2)), http.StatusNotFound},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("ctx: %w", NewConflictError("email taken"))
	assert.True(t, IsCode(err, CodeConflict))
	assert.False(t, IsCode(err, CodeNotFound))
}

func TestWeekdayOf(t *testing.T) {
	// 2026-10-17 is a saturday
	sat := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, Monday, WeekdayOf(sat))
	assert.Equal(t, Monday, WeekdayOf(sat.AddDate(0, 0, 1)))
	assert.Equal(t, Monday, WeekdayOf(sat.AddDate(0, 0, 2)))
	assert.Equal(t, Wednesday, WeekdayOf(sat.AddDate(0, 0, 4)))
	assert.Equal(t, Friday, WeekdayOf(sat.AddDate(0, 0, 6)))
}

func TestParseWeekday(t *testing.T) {
	w, ok := ParseWeekday(" Thursday ")
	assert.True(t, ok)
	assert.Equal(t, Thursday, w)

	_, ok = ParseWeekday("saturday")
	assert.False(t, ok)
}

func TestPeriodTime(t *testing.T) {
	r, ok := PeriodTime(3)
	assert.True(t, ok)
	assert.Equal(t, "13:00", r.Start)
	assert.Equal(t, "14:30", r.End)

	for _, p := range []int{0, 7} {
		_, ok := PeriodTime(p)
		assert.False(t, ok)
	}
	assert.Len(t, PeriodTimes(), PeriodCount)
}

func TestNewTimetable_EarliestCoursePerSlotWins(t *testing.T) {
	// Listed by name, so the later course comes first.
	courses := []Course{
		{ID: 2, Name: "微分積分", Weekday: Monday, Period: 1},
		{ID: 1, Name: "線形代数", Weekday: Monday, Period: 1},
		{ID: 3, Name: "英語", Weekday: Friday, Period: 6},
		{ID: 4, Name: "invalid", Weekday: "sunday", Period: 2},
	}
	tt := NewTimetable(courses)

	assert.Equal(t, uint(1), tt.At(Monday, 1).ID)
	assert.Equal(t, uint(3), tt.At(Friday, 6).ID)
	assert.Nil(t, tt.At(Tuesday, 2))
	assert.Nil(t, tt.At(Monday, 7))
}

func TestCourseEvaluation_AverageScore(t *testing.T) {
	e := CourseEvaluation{OverallScore: 5, DifficultyScore: 3, AssignmentsScore: 4, TeachingScore: 2, GradingScore: 1}
	assert.InDelta(t, 3.0, e.AverageScore(), 1e-9)
}

func TestPost_Present(t *testing.T) {
	author := &User{ID: 1, Username: "taro", Email: "taro@example.com", StudentID: "s1"}

	anon := Post{IsAnonymous: true, User: author}
	anon.Present()
	assert.Equal(t, AnonymousAuthorName, anon.AuthorName)
	assert.Nil(t, anon.User)

	named := Post{User: author}
	named.Present()
	assert.Equal(t, "taro", named.AuthorName)
	assert.Empty(t, named.User.Email)
	assert.Equal(t, "taro@example.com", author.Email)
}

func TestAnonymousContentOmitsUserID(t *testing.T) {
	fields := func(v any) map[string]any {
		t.Helper()
		b, err := json.Marshal(v)
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, json.Unmarshal(b, &m))
		return m
	}

	tests := []struct {
		name     string
		value    any
		wantUser bool
	}{
		{"named post", Post{ID: 1, UserID: 7, Title: "t"}, true},
		{"anonymous post", &Post{ID: 2, UserID: 7, IsAnonymous: true}, false},
		{"named comment", Comment{ID: 3, UserID: 7}, true},
		{"anonymous comment", &Comment{ID: 4, UserID: 7, IsAnonymous: true}, false},
		{"signed review", CourseEvaluation{ID: 5, UserID: 7, AuthorName: "taro"}, true},
		{"default review", CourseEvaluation{ID: 6, UserID: 7, AuthorName: AnonymousAuthorName}, false},
		{"unnamed review", CourseEvaluation{ID: 7, UserID: 7}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := fields(tt.value)
			assert.NotNil(t, m["id"])
			if tt.wantUser {
				assert.EqualValues(t, 7, m["user_id"])
			} else {
				assert.NotContains(t, m, "user_id")
			}
		})
	}

	m := fields(Post{ID: 9, Title: "期末", ImageURLs: []string{"/media/a.webp"}})
	assert.Equal(t, "期末", m["title"])
	assert.NotContains(t, m, "DeletedAt")
	assert.NotContains(t, m, "post")
}
