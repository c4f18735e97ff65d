package catalogmodule

import (
	"github.com/filmsearch/filmsearch/internal/database"
	"gorm.io/gorm"
)

// PersonManager handles actor and director reads
type PersonManager struct {
	db *gorm.DB
}

// NewPersonManager creates a person manager
func NewPersonManager(db *gorm.DB) *PersonManager {
	return &PersonManager{db: db}
}

// PersonWithCount pairs a person with the number of titles they appear in
type PersonWithCount struct {
	database.Person
	TitlesCount int64 `json:"titles_count"`
}

// ListWithCounts returns all people with their credited title counts
func (m *PersonManager) ListWithCounts() ([]PersonWithCount, error) {
	var rows []PersonWithCount
	err := m.db.Model(&database.Person{}).
		Select("people.*, COUNT(DISTINCT title_credits.title_id) as titles_count").
		Joins("LEFT JOIN title_credits ON title_credits.person_id = people.id").
		Group("people.id").
		Order("titles_count DESC, people.full_name ASC").
		Scan(&rows).Error
	return rows, err
}

// Filmography is one credited appearance in a person's history
type Filmography struct {
	Title         database.Title `json:"title"`
	Role          string         `json:"role"`
	CharacterName string         `json:"character_name,omitempty"`
}

// GetWithFilmography loads a person and their credits, newest title first
func (m *PersonManager) GetWithFilmography(id uint) (*database.Person, []Filmography, error) {
	var person database.Person
	if err := m.db.First(&person, id).Error; err != nil {
		return nil, nil, err
	}

	var credits []database.TitleCredit
	err := m.db.Where("person_id = ?", id).Find(&credits).Error
	if err != nil {
		return nil, nil, err
	}

	var filmography []Filmography
	if len(credits) > 0 {
		titleIDs := make([]uint, 0, len(credits))
		for _, c := range credits {
			titleIDs = append(titleIDs, c.TitleID)
		}
		var titles []database.Title
		if err := m.db.Where("id IN ?", titleIDs).Order("release_date DESC").Find(&titles).Error; err != nil {
			return nil, nil, err
		}
		byID := make(map[uint]database.Title, len(titles))
		for _, t := range titles {
			byID[t.ID] = t
		}
		for _, t := range titles {
			for _, c := range credits {
				if c.TitleID == t.ID {
					filmography = append(filmography, Filmography{
						Title:         byID[c.TitleID],
						Role:          c.Role,
						CharacterName: c.CharacterName,
					})
				}
			}
		}
	}

	return &person, filmography, nil
}

// Create persists a person
func (m *PersonManager) Create(person *database.Person) error {
	return m.db.Create(person).Error
}

// AddCredit links a person to a title with a role; the unique index rejects
// duplicate (title, person, role) rows.
func (m *PersonManager) AddCredit(credit *database.TitleCredit) error {
	return m.db.Create(credit).Error
}
