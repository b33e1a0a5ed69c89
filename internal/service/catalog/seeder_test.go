package catalog

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/HectorPOsuna/escaner-red/internal/model/inventory"
	"github.com/HectorPOsuna/escaner-red/internal/repo/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ouiSample = `OUI/MA-L                                                    Organization
company_id                                                  Organization
                                                            Address

00-00-0C   (hex)		Cisco Systems, Inc
00000C     (base 16)		Cisco Systems, Inc
				170 WEST TASMAN DRIVE
				SAN JOSE CA 95134-1706
				US

b8-27-eb   (hex)		Raspberry Pi Foundation
B827EB     (base 16)		Raspberry Pi Foundation

00-00-0C   (hex)		Cisco duplicate
`

const ianaSample = `Service Name,Port Number,Transport Protocol,Description,Assignee
ssh,22,tcp,The Secure Shell (SSH) Protocol,[RFC4251]
ssh,22,udp,The Secure Shell (SSH) Protocol,[RFC4251]
,23,tcp,,
x11,6000-6063,tcp,X Window System,
mysql,3306,tcp,MySQL,
custom,40000,tcp,"Description, with comma",
`

func TestLoadDefaults(t *testing.T) {
	d, err := LoadDefaults()
	require.NoError(t, err)
	assert.NotEmpty(t, d.Manufacturers)
	assert.NotEmpty(t, d.OperatingSystems)
	assert.NotEmpty(t, d.Protocols)
	assert.NotContains(t, d.OperatingSystems, inventory.UnknownOperatingSystem)
}

func TestSeeder_SeedDefaultsIsIdempotent(t *testing.T) {
	store := memory.NewInventoryStore()
	seeder := NewSeeder(store)
	ctx := context.Background()

	first, err := seeder.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Read, first.Inserted)
	assert.Zero(t, first.Skipped)

	second, err := seeder.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.Inserted)
	assert.Equal(t, first.Read, second.Skipped)

	unknown, err := store.GetManufacturerByOUI(ctx, inventory.UnknownManufacturerOUI)
	require.NoError(t, err)
	require.NotNil(t, unknown)
	assert.Equal(t, inventory.UnknownManufacturerName, unknown.Name)

	os, err := store.GetOperatingSystemByName(ctx, inventory.UnknownOperatingSystem)
	require.NoError(t, err)
	assert.NotNil(t, os)

	ssh, err := store.GetProtocolByPort(ctx, 22)
	require.NoError(t, err)
	require.NotNil(t, ssh)
	assert.Equal(t, inventory.CategorySecure, ssh.Category)
}

func TestSeeder_ImportOUI(t *testing.T) {
	store := memory.NewInventoryStore()
	seeder := NewSeeder(store)

	stats, err := seeder.ImportOUI(context.Background(), strings.NewReader(ouiSample))
	require.NoError(t, err)
	assert.Equal(t, Stats{Read: 3, Inserted: 2, Skipped: 1}, stats)

	cisco, err := store.GetManufacturerByOUI(context.Background(), "00000C")
	require.NoError(t, err)
	require.NotNil(t, cisco)
	assert.Equal(t, "Cisco Systems, Inc", cisco.Name)

	rpi, err := store.GetManufacturerByOUI(context.Background(), "B827EB")
	require.NoError(t, err)
	assert.NotNil(t, rpi)
}

func TestSeeder_ImportOUIChunks(t *testing.T) {
	var b strings.Builder
	total := ChunkSize + 25
	for i := 0; i < total; i++ {
		fmt.Fprintf(&b, "%02X-%02X-%02X   (hex)\t\tVendor %d\n", (i>>16)&0xff, (i>>8)&0xff, i&0xff, i)
	}

	store := memory.NewInventoryStore()
	stats, err := NewSeeder(store).ImportOUI(context.Background(), strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Equal(t, total, stats.Read)
	assert.Equal(t, total, stats.Inserted)
	assert.Len(t, store.Manufacturers(), total)
}

func TestSeeder_ImportIANA(t *testing.T) {
	store := memory.NewInventoryStore()
	seeder := NewSeeder(store)

	stats, err := seeder.ImportIANA(context.Background(), strings.NewReader(ianaSample))
	require.NoError(t, err)
	assert.Equal(t, Stats{Read: 3, Inserted: 3}, stats)

	protocols := store.Protocols()
	require.Len(t, protocols, 3)
	assert.Equal(t, 22, protocols[0].Port)
	assert.Equal(t, inventory.CategorySecure, protocols[0].Category)
	assert.Equal(t, inventory.CategoryDatabase, protocols[1].Category)
	assert.Equal(t, inventory.CategoryOther, protocols[2].Category)
	assert.Equal(t, "Description, with comma", protocols[2].Description)

	again, err := seeder.ImportIANA(context.Background(), strings.NewReader(ianaSample))
	require.NoError(t, err)
	assert.Equal(t, Stats{Read: 3, Skipped: 3}, again)
}

func TestSeeder_ImportIANAMissingColumns(t *testing.T) {
	_, err := NewSeeder(memory.NewInventoryStore()).ImportIANA(context.Background(), strings.NewReader("a,b,c\n1,2,3\n"))
	assert.Error(t, err)
}

func TestCategoryForPort(t *testing.T) {
	assert.Equal(t, inventory.CategoryInsecure, CategoryForPort(23))
	assert.Equal(t, inventory.CategoryWeb, CategoryForPort(8080))
	assert.Equal(t, inventory.CategoryOther, CategoryForPort(31337))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "añ", truncateRunes("añb", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 10))
}
