package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestUserAge(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		birthDate *time.Time
		wantAge   int
		wantKnown bool
		wantAdult bool
	}{
		{"unknown", nil, 0, false, false},
		{"birthday today", date(2008, time.March, 1), 18, true, true},
		{"birthday tomorrow", date(2008, time.March, 2), 17, true, false},
		{"birthday earlier this month", date(2000, time.March, 1), 26, true, true},
		{"child", date(2015, time.June, 10), 10, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{BirthDate: tt.birthDate}
			age, known := u.Age(now)
			assert.Equal(t, tt.wantAge, age)
			assert.Equal(t, tt.wantKnown, known)
			assert.Equal(t, tt.wantAdult, u.IsAdult(now))
		})
	}
}

func TestUserFullName(t *testing.T) {
	assert.Equal(t, "Ivan Petrov", (&User{Username: "ivan", FirstName: "Ivan", LastName: "Petrov"}).FullName())
	assert.Equal(t, "Ivan", (&User{Username: "ivan", FirstName: "Ivan"}).FullName())
	assert.Equal(t, "ivan", (&User{Username: "ivan"}).FullName())
}

func TestRoles(t *testing.T) {
	assert.True(t, RoleTutor.Valid())
	assert.False(t, Role("owner").Valid())

	var nobody *User
	assert.False(t, nobody.IsAdmin())
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&User{Role: RoleStudent}).IsAdmin())
}

func TestCourseJSONIncludesIsFree(t *testing.T) {
	data, err := json.Marshal(&Course{ID: 7, Title: "Go", Level: LevelMiddle, Price: 0})
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, true, out["is_free"])
	assert.Equal(t, "Go", out["title"])
	assert.Equal(t, "middle", out["level"])

	data, err = json.Marshal(&Course{Price: 100000})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, false, out["is_free"])
}

func TestModuleTotalDuration(t *testing.T) {
	m := &Module{Lessons: []*Lesson{{DurationMinutes: 10}, {DurationMinutes: 25}}}
	assert.Equal(t, 35, m.TotalDuration())
	assert.Zero(t, (&Module{}).TotalDuration())
}

func TestLevelValid(t *testing.T) {
	assert.True(t, LevelAdvanced.Valid())
	assert.False(t, Level("expert").Valid())
}
