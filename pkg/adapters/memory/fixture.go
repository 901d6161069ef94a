package memory

import (
	"fmt"

	"github.com/aretw0/configurator/pkg/domain"
)

// Demo catalog ids.
const (
	DemoUserAlice int64 = 1
	DemoUserBob   int64 = 2

	DemoTShirt     int64 = 1
	DemoSteelPlate int64 = 2
	DemoPoloShirt  int64 = 3
	DemoStickers   int64 = 4

	DemoColor, DemoRed, DemoBlue, DemoGreen int64 = 1, 11, 12, 13
	DemoSize, DemoSmall, DemoMedium         int64 = 2, 21, 22
)

// NewDemoCatalog returns a small catalog used by the demo mode and by tests.
//
// T-Shirt has Color{Red,Blue} x Size{S,M} and one existing variant Red/M.
// Polo Shirt shares the raw Red value with T-Shirt but belongs to Bob.
// Stickers has 23 patterns to exercise value pagination, and there are ten
// "Cable" templates to exercise search pagination.
func NewDemoCatalog() *Catalog {
	c := NewCatalog()
	c.AddUser(User{ID: DemoUserAlice, Name: "Alice Martin", Login: "alice"})
	c.AddUser(User{ID: DemoUserBob, Name: "Bob Stone", Login: "bob"})

	color := domain.Attribute{ID: DemoColor, Name: "Color", Values: []domain.Value{
		{ID: DemoRed, Name: "Red"},
		{ID: DemoBlue, Name: "Blue"},
	}}
	size := domain.Attribute{ID: DemoSize, Name: "Size", Values: []domain.Value{
		{ID: DemoSmall, Name: "S"},
		{ID: DemoMedium, Name: "M"},
	}}
	c.AddTemplate(TemplateSpec{
		ID: DemoTShirt, Name: "T-Shirt", DefaultCode: "TSH", CreatedBy: DemoUserAlice,
		Attributes: []domain.Attribute{color, size},
	})

	c.AddTemplate(TemplateSpec{
		ID: DemoSteelPlate, Name: "Steel Plate", CreatedBy: DemoUserAlice,
		Attributes: []domain.Attribute{
			{ID: 3, Name: "THICKNESS", Values: []domain.Value{
				{ID: 31, Name: "THICKNESS: 1 mm"},
				{ID: 32, Name: "THICKNESS - 2 mm"},
			}},
			{ID: 4, Name: "Finish", Values: []domain.Value{
				{ID: 41, Name: "Brushed"},
				{ID: 42, Name: "Polished"},
			}},
		},
	})

	c.AddTemplate(TemplateSpec{
		ID: DemoPoloShirt, Name: "Polo Shirt", CreatedBy: DemoUserBob,
		Attributes: []domain.Attribute{{ID: DemoColor, Name: "Color", Values: []domain.Value{
			{ID: DemoRed, Name: "Red"},
			{ID: DemoGreen, Name: "Green"},
		}}},
	})

	patterns := domain.Attribute{ID: 5, Name: "Pattern"}
	for i := 1; i <= 23; i++ {
		patterns.Values = append(patterns.Values, domain.Value{ID: int64(500 + i), Name: fmt.Sprintf("Pattern %02d", i)})
	}
	c.AddTemplate(TemplateSpec{
		ID: DemoStickers, Name: "Sticker Pack", CreatedBy: DemoUserAlice,
		Attributes: []domain.Attribute{patterns},
	})

	length := domain.Attribute{ID: 6, Name: "Length", Values: []domain.Value{
		{ID: 61, Name: "1 m"},
		{ID: 62, Name: "2 m"},
	}}
	for i := 1; i <= 10; i++ {
		c.AddTemplate(TemplateSpec{
			ID: int64(100 + i), Name: fmt.Sprintf("Cable Type %d", i), CreatedBy: DemoUserAlice,
			Attributes: []domain.Attribute{length},
		})
	}

	// Seeding cannot fail for ids declared above.
	v, _ := c.AddVariant(DemoTShirt, []int64{DemoRed, DemoMedium}, "TSH-RED-M", "4000000000017")
	c.SetQty(v.ID, 12)

	return c
}
