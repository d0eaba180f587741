package companion_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eryai/mimre/internal/model/companion"
)

func TestSeedHasBothCompanions(t *testing.T) {
	items := companion.Seed()
	require.Len(t, items, 2)

	assert.Equal(t, companion.Astrid, items[0].ID)
	assert.Equal(t, "Astrid", items[0].Name)
	assert.Equal(t, "/icons/astrid.svg", items[0].Avatar)
	assert.Equal(t, "Hei, kjære deg! Så hyggelig å snakke med deg. Hvordan har du det i dag?", items[0].Greeting)

	assert.Equal(t, companion.Ivar, items[1].ID)
	assert.Equal(t, "Hei der! Hyggelig å prate med deg. Hvordan står det til?", items[1].Greeting)
}

func TestRegistryLookup(t *testing.T) {
	reg := companion.Default()

	ivar, ok := reg.FindByID(companion.Ivar)
	require.True(t, ok)
	assert.Equal(t, "Ivar", ivar.Name)

	_, ok = reg.FindByID("bjarne")
	assert.False(t, ok)

	assert.Equal(t, companion.Astrid, reg.Resolve("bjarne").ID)
	assert.Equal(t, companion.Ivar, reg.Resolve(companion.Ivar).ID)
}

func TestRegistryListIsACopy(t *testing.T) {
	reg := companion.Default()
	list := reg.List()
	list[0].Name = "changed"

	astrid, _ := reg.FindByID(companion.Astrid)
	assert.Equal(t, "Astrid", astrid.Name)
}

func TestParseRejectsBadCatalogue(t *testing.T) {
	_, err := companion.Parse([]byte("- id: a\n  name: A\n"))
	assert.Error(t, err)

	_, err = companion.Parse([]byte("- {id: a, name: A, greeting: hi}\n- {id: a, name: B, greeting: hi}\n"))
	assert.Error(t, err)

	_, err = companion.Parse([]byte("not: [valid"))
	assert.Error(t, err)
}
