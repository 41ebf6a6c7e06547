package domain

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestMovie_Validate(t *testing.T) {
	cases := []struct {
		name string
		m    Movie
		ok   bool
	}{
		{"minimal", Movie{Title: "Heat"}, true},
		{"blank title", Movie{Title: "  "}, false},
		{"rating lower bound", Movie{Title: "a", Rating: Float(0)}, true},
		{"rating upper bound", Movie{Title: "a", Rating: Float(10)}, true},
		{"rating too high", Movie{Title: "a", Rating: Float(10.1)}, false},
		{"rating negative", Movie{Title: "a", Rating: Float(-0.1)}, false},
		{"rating NaN", Movie{Title: "a", Rating: Float(math.NaN())}, false},
		{"rating +Inf", Movie{Title: "a", Rating: Float(math.Inf(1))}, false},
		{"year zero", Movie{Title: "a", Year: Int(0)}, false},
		{"year ok", Movie{Title: "a", Year: Int(1994)}, true},
	}
	for _, tc := range cases {
		err := tc.m.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s：不期望错误：%v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidMovie) {
			t.Fatalf("%s：期望 ErrInvalidMovie，实际：%v", tc.name, err)
		}
	}
}

func TestMovie_CloneDoesNotShareStorage(t *testing.T) {
	m := Movie{Title: "Heat", Year: Int(1995), Rating: Float(8.3), Actors: []string{"Al Pacino"}}
	c := m.Clone()

	*c.Year = 2000
	*c.Rating = 1
	c.Actors[0] = "x"

	if *m.Year != 1995 || *m.Rating != 8.3 || m.Actors[0] != "Al Pacino" {
		t.Fatalf("Clone 与原记录共享了存储：%+v", m)
	}
}

func TestSplitActors(t *testing.T) {
	got := SplitActors(" Tom Hanks, Robin Wright ,, N/A")
	want := []string{"Tom Hanks", "Robin Wright"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("期望 %v，实际 %v", want, got)
	}
	if SplitActors("N/A") != nil {
		t.Fatalf("期望 nil")
	}
}
