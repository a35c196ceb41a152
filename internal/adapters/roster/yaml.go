package roster

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/smfc/matchday/internal/domain/model"
)

// YAMLParser reads rosters like:
//
//	players:
//	  - name: Ann
//	    position: DEF
//	    pac: 64
//	    star_rating: 4
type YAMLParser struct{}

// NewYAMLParser creates a YAML roster parser.
func NewYAMLParser() *YAMLParser { return &YAMLParser{} }

type yamlRoster struct {
	Players []yamlPlayer `yaml:"players"`
}

type yamlPlayer struct {
	Name        string   `yaml:"name"`
	Position    string   `yaml:"position"`
	Pace        *float64 `yaml:"pac"`
	Shooting    *float64 `yaml:"sho"`
	Passing     *float64 `yaml:"pas"`
	Dribbling   *float64 `yaml:"dri"`
	Defending   *float64 `yaml:"def"`
	Physicality *float64 `yaml:"phy"`
	StarRating  *float64 `yaml:"star_rating"`
}

// Parse decodes data.
func (p *YAMLParser) Parse(data []byte) ([]model.RatedPlayer, error) {
	var doc yamlRoster
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	players := make([]model.RatedPlayer, 0, len(doc.Players))
	for _, y := range doc.Players {
		players = append(players, model.RatedPlayer{
			Name:        y.Name,
			Position:    model.ParsePosition(y.Position),
			Pace:        rating(y.Pace, model.DefaultAttribute),
			Shooting:    rating(y.Shooting, model.DefaultAttribute),
			Passing:     rating(y.Passing, model.DefaultAttribute),
			Dribbling:   rating(y.Dribbling, model.DefaultAttribute),
			Defending:   rating(y.Defending, model.DefaultAttribute),
			Physicality: rating(y.Physicality, model.DefaultAttribute),
			StarRating:  rating(y.StarRating, model.DefaultStarRating),
		})
	}
	return finish(players)
}

// EncodeYAML renders players in the format YAMLParser reads.
func EncodeYAML(players []model.RatedPlayer) ([]byte, error) {
	return yaml.Marshal(struct {
		Players []model.RatedPlayer `yaml:"players"`
	}{players})
}
