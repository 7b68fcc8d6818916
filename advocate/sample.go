package advocate

import (
	"strconv"

	"github.com/google/uuid"
)

// idNamespace derives stable IDs for sample records so reseeding keeps URLs valid.
var idNamespace = uuid.MustParse("6f1c2a4e-8c0b-4d7e-9a52-3b1f0c9d7e21")

var specialtyPool = []string{
	"Bipolar",
	"LGBTQ",
	"Medication/Prescribing",
	"Suicide History/Attempts",
	"General Mental Health (anxiety, depression, stress, grief, life transitions)",
	"Men's issues",
	"Relationship Issues (family, friends, couple, etc)",
	"Trauma & PTSD",
	"Personality disorders",
	"Personal growth",
	"Substance use/abuse",
	"Pediatrics",
	"Women's issues (post-partum, infertility, family planning)",
	"Chronic pain",
	"Weight loss & nutrition",
	"Eating disorders",
	"Diabetic Diet and nutrition",
	"Coaching (leadership, career, academic and wellness)",
	"Life coaching",
	"Obsessive-compulsive disorders",
	"Neuropsychological evaluations & testing (ADHD testing)",
	"Attention and Hyperactivity (ADHD)",
	"Sleep issues",
	"Schizophrenia and psychotic disorders",
	"Learning disorders",
	"Domestic abuse",
}

type sampleRow struct {
	first, last, city, degree string
	years                     int
	phone                     int64
	specialties               []int
}

var sampleRows = []sampleRow{
	{"John", "Doe", "New York", "MD", 10, 5551234567, []int{0, 1, 2}},
	{"Jane", "Smith", "Los Angeles", "PhD", 8, 5559876543, []int{4, 5}},
	{"Alice", "Johnson", "Chicago", "MSW", 5, 5555555555, []int{6, 7, 8}},
	{"Michael", "Brown", "Houston", "MD", 12, 5551112222, []int{9, 10}},
	{"Emily", "Davis", "Phoenix", "PhD", 7, 5553334444, []int{11, 12, 13}},
	{"Chris", "Martinez", "Philadelphia", "MSW", 9, 5555556666, []int{14, 15}},
	{"Jessica", "Taylor", "San Antonio", "MD", 11, 5557778888, []int{16, 17, 18}},
	{"David", "Harris", "San Diego", "PhD", 6, 5559990000, []int{19, 20}},
	{"Laura", "Clark", "Dallas", "MSW", 4, 5551113333, []int{21, 22, 23}},
	{"Daniel", "Lewis", "San Jose", "MD", 13, 5553335555, []int{24, 25}},
	{"Sarah", "Lee", "Austin", "PhD", 10, 5555557777, []int{3, 4, 7}},
	{"James", "King", "Jacksonville", "MSW", 5, 5557779999, []int{1, 6}},
	{"Megan", "Green", "San Francisco", "MD", 14, 5559991111, []int{2, 9, 11}},
	{"Joshua", "Walker", "Columbus", "PhD", 9, 5551114444, []int{10, 15}},
	{"Amanda", "Hall", "Fort Worth", "MSW", 3, 5553336666, []int{12, 20, 21}},
}

// SampleDirectory returns the development directory used by the seed command
// and the runnable example. A fresh slice is returned on every call.
func SampleDirectory() []*Advocate {
	out := make([]*Advocate, 0, len(sampleRows))
	for _, row := range sampleRows {
		specialties := make([]string, 0, len(row.specialties))
		for _, idx := range row.specialties {
			specialties = append(specialties, specialtyPool[idx])
		}
		out = append(out, &Advocate{
			ID:                SampleID(row.phone),
			FirstName:         row.first,
			LastName:          row.last,
			City:              row.city,
			Degree:            row.degree,
			Specialties:       specialties,
			YearsOfExperience: row.years,
			PhoneNumber:       row.phone,
		})
	}
	return out
}

// SampleID returns the deterministic ID assigned to a sample record.
func SampleID(phone int64) uuid.UUID {
	return uuid.NewSHA1(idNamespace, []byte(strconv.FormatInt(phone, 10)))
}
