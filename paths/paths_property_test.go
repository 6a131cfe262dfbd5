package paths

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/models"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var employers = []string{"Acme", "Initech", "Globex", "Umbrella"}

type fixture struct {
	contacts []models.Contact
	conns    map[uuid.UUID]models.Connection
}

func genFixture() gopter.Gen {
	return gen.SliceOfN(12, gopter.CombineGens(
		gen.IntRange(0, len(employers)-1),
		gen.IntRange(0, len(employers)-1),
		gen.IntRange(0, 100),
		gen.IntRange(0, 500),
	)).Map(func(rows [][]interface{}) fixture {
		f := fixture{conns: make(map[uuid.UUID]models.Connection)}
		for i, row := range rows {
			id := uuid.NewSHA1(uuid.NameSpaceOID, []byte{byte(i)})
			c := models.Contact{
				ID:             id,
				Name:           employers[row[0].(int)] + "-person",
				CurrentCompany: employers[row[0].(int)],
				History:        []models.Employment{{Company: employers[row[1].(int)]}},
				CreatedAt:      base.Add(time.Duration(row[3].(int)) * time.Minute),
			}
			f.contacts = append(f.contacts, c)
			f.conns[id] = models.Connection{ContactID: id, Strength: row[2].(int)}
		}
		return f
	})
}

func TestFindPathProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	companies := []models.Company{
		{ID: uuid.New(), Name: "Acme", Industry: "SaaS", Location: "Berlin"},
		{ID: uuid.New(), Name: "Initech", Industry: "SaaS", Location: "Berlin"},
		{ID: uuid.New(), Name: "Globex", Industry: "Energy"},
		{ID: uuid.New(), Name: "Umbrella", Industry: "Pharma"},
	}

	properties.Property("find path is idempotent", prop.ForAll(
		func(f fixture, target int, allow bool) bool {
			n := NewNetwork(f.contacts, f.conns, companies)
			opts := Options{AllowInferred: allow}
			return reflect.DeepEqual(n.FindPath(companies[target], opts), n.FindPath(companies[target], opts))
		},
		genFixture(), gen.IntRange(0, 3), gen.Bool(),
	))

	properties.Property("result does not depend on contact order", prop.ForAll(
		func(f fixture, target int) bool {
			reversed := make([]models.Contact, len(f.contacts))
			for i, c := range f.contacts {
				reversed[len(f.contacts)-1-i] = c
			}
			a := NewNetwork(f.contacts, f.conns, companies).FindPath(companies[target], Options{AllowInferred: true})
			b := NewNetwork(reversed, f.conns, companies).FindPath(companies[target], Options{AllowInferred: true})
			if a.Found() != b.Found() {
				return false
			}
			return !a.Found() || (a.Type == b.Type && a.Contact.ID == b.Contact.ID)
		},
		genFixture(), gen.IntRange(0, 3),
	))

	properties.Property("a direct path exists whenever someone works at the target", prop.ForAll(
		func(f fixture, target int) bool {
			r := NewNetwork(f.contacts, f.conns, companies).FindPath(companies[target], Options{})
			for _, c := range f.contacts {
				if c.CurrentCompany == companies[target].Name {
					return r.Type == models.TypeDirect && r.Contact.CurrentCompany == c.CurrentCompany
				}
			}
			return r.Type != models.TypeDirect
		},
		genFixture(), gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}
