package payroll

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-browse/facet"
)

// =============================================================================
// DEMO DATA
// =============================================================================
//
// Demo data stands in for the ingestion pipeline in development. It is
// generated from a fixed seed so screenshots and manual tests are repeatable.
//
// Each employee gets one record per pay day (the 15th and the last day of
// each month, July to December 2024). Active employees also get a
// month-only December record for the year-end bonus run, so both period
// shapes appear in the data.

var (
	demoBranches = []string{"CDMX", "GDL", "MTY", "QRO"}

	demoPositions = map[string][]string{
		"Ventas":           {"Ejecutivo de Ventas", "Gerente de Ventas"},
		"Finanzas":         {"Analista Contable", "Contador"},
		"Operaciones":      {"Operador", "Supervisor de Operaciones"},
		"Recursos Humanos": {"Generalista de RH", "Reclutador"},
		"Sistemas":         {"Desarrollador", "Administrador de Sistemas"},
	}
	demoDepartments = []string{"Ventas", "Finanzas", "Operaciones", "Recursos Humanos", "Sistemas"}

	demoFirstNames = []string{
		"Ana", "Beatriz", "Carlos", "Diego", "Elena", "Fernando", "Gabriela", "Héctor",
		"Irene", "Jorge", "Karla", "Luis", "María", "Nicolás", "Óscar", "Paula",
	}
	demoLastNames = []string{
		"López", "Pérez", "García", "Hernández", "Martínez", "Núñez", "Ramírez", "Sánchez",
		"Torres", "Flores", "Vázquez", "Castillo",
	}

	// Monthly base salary bands per position level (junior, senior).
	demoBands = [2][2]int64{{12000, 22000}, {25000, 45000}}

	demoBonusRate = decimal.RequireFromString("0.5")
)

// DemoEmployees is the number of employees DemoRecords generates.
const DemoEmployees = 48

// DemoRecords returns the default demo data set.
func DemoRecords() []facet.Record {
	return GenerateDemo(20241015, DemoEmployees)
}

// GenerateDemo builds payroll records for n employees from seed. The same
// seed and n always yield the same records.
func GenerateDemo(seed int64, n int) []facet.Record {
	rng := rand.New(rand.NewSource(seed))
	paydays := demoPaydays(2024, time.July, time.December)

	var out []facet.Record
	for i := 0; i < n; i++ {
		e := newDemoEmployee(rng, i)
		for _, day := range paydays {
			// Half-month payroll runs.
			out = append(out, e.record(day, e.base.Div(decimal.NewFromInt(2))))
		}
		if e.status == StatusActive {
			out = append(out, e.record("2024-12", e.base.Mul(demoBonusRate)))
		}
	}
	return out
}

type demoEmployee struct {
	code       string
	name       string
	branch     string
	department string
	position   string
	status     string
	base       decimal.Decimal
}

func newDemoEmployee(rng *rand.Rand, i int) demoEmployee {
	first := demoFirstNames[rng.Intn(len(demoFirstNames))]
	last := demoLastNames[rng.Intn(len(demoLastNames))]
	dept := demoDepartments[rng.Intn(len(demoDepartments))]
	level := rng.Intn(2)

	band := demoBands[level]
	steps := (band[1] - band[0]) / 250
	base := decimal.NewFromInt(band[0] + 250*rng.Int63n(steps+1))

	status := StatusActive
	switch r := rng.Intn(20); {
	case r == 0:
		status = StatusSuspended
	case r < 4:
		status = StatusInactive
	}

	return demoEmployee{
		code:       fmt.Sprintf("%c%c%04d", 'A'+rune(i%26), 'A'+rune((i/26)%26), 1000+i),
		name:       first + " " + last,
		branch:     demoBranches[rng.Intn(len(demoBranches))],
		department: dept,
		position:   demoPositions[dept][level],
		status:     status,
		base:       base,
	}
}

// record builds one pay record; deductions are a flat 16% withholding.
func (e demoEmployee) record(period string, gross decimal.Decimal) facet.Record {
	deductions := gross.Mul(decimal.RequireFromString("0.16")).Round(2)
	return facet.Record{
		ID:         e.code + "-" + period,
		Name:       e.name,
		Position:   e.position,
		Department: e.department,
		Branch:     e.branch,
		Status:     e.status,
		Period:     period,
		BaseSalary: gross,
		Deductions: deductions,
		NetPay:     gross.Sub(deductions),
	}
}

// demoPaydays returns the 15th and last day of each month in [from, to].
func demoPaydays(year int, from, to time.Month) []string {
	var days []string
	for m := from; m <= to; m++ {
		mid := time.Date(year, m, 15, 0, 0, 0, 0, time.UTC)
		last := time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC)
		days = append(days, mid.Format("2006-01-02"), last.Format("2006-01-02"))
	}
	return days
}
