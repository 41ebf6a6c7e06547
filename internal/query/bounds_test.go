package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/John-Robertt/mymovies/internal/domain"
)

func TestBounds_InclusiveRating(t *testing.T) {
	ms := []domain.Movie{
		{Title: "low", Rating: domain.Float(6.9)},
		{Title: "edge", Rating: domain.Float(7.0)},
		{Title: "high", Rating: domain.Float(9.1)},
	}
	got := Bounds{MinRating: domain.Float(7.0)}.Apply(ms)
	assert.Equal(t, []string{"edge", "high"}, titles(got))

	got = Bounds{MinRating: domain.Float(6.9), MaxRating: domain.Float(7.0)}.Apply(ms)
	assert.Equal(t, []string{"low", "edge"}, titles(got))
}

func TestBounds_MissingFieldIsExcluded(t *testing.T) {
	ms := []domain.Movie{
		{Title: "no year", Rating: domain.Float(8)},
		{Title: "no rating", Year: domain.Int(2001)},
		{Title: "both", Year: domain.Int(2001), Rating: domain.Float(8)},
	}
	assert.Equal(t, []string{"no rating", "both"}, titles(Bounds{MinYear: domain.Int(2000)}.Apply(ms)))
	assert.Equal(t, []string{"no year", "both"}, titles(Bounds{MaxRating: domain.Float(9)}.Apply(ms)))
	assert.Equal(t, []string{"both"}, titles(Bounds{MaxRating: domain.Float(9), MaxYear: domain.Int(2001)}.Apply(ms)))
}

func TestBounds_ZeroValueKeepsEverything(t *testing.T) {
	ms := catalog()
	assert.Equal(t, titles(ms), titles(Bounds{}.Apply(ms)))
}

func TestBounds_YearRange(t *testing.T) {
	got := Bounds{MinYear: domain.Int(1977), MaxYear: domain.Int(1994)}.Apply(catalog())
	assert.Equal(t, []string{"Forrest Gump", "The Shawshank Redemption", "Star Wars: Episode IV"}, titles(got))
}
