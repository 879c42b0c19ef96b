package simulate

// Profile shapes the simulated physiology of one user.
type Profile struct {
	Name string
	// CycleMean and CycleJitter control cycle lengths in days.
	CycleMean   float64
	CycleJitter float64
	// PeriodLength is the typical bleed length in days.
	PeriodLength int
	// HeartRate is the daytime heart rate baseline in bpm.
	HeartRate       float64
	HeartRateJitter float64
	// RestingHeartRate is the overnight baseline in bpm.
	RestingHeartRate float64
	// DailySteps is the mean daily step total.
	DailySteps  float64
	StepsJitter float64
	// SleepHours is the mean nightly sleep.
	SleepHours float64
	// AnomalyRate is the chance per day of one out-of-range heart rate reading.
	AnomalyRate float64
}

// Built-in profiles. Users are assigned one by index.
var (
	Regular = Profile{
		Name: "regular", CycleMean: 28, CycleJitter: 1, PeriodLength: 5,
		HeartRate: 78, HeartRateJitter: 4, RestingHeartRate: 62,
		DailySteps: 9000, StepsJitter: 1500, SleepHours: 7.5, AnomalyRate: 0.03,
	}
	Irregular = Profile{
		Name: "irregular", CycleMean: 32, CycleJitter: 7, PeriodLength: 6,
		HeartRate: 84, HeartRateJitter: 5, RestingHeartRate: 68,
		DailySteps: 5500, StepsJitter: 2000, SleepHours: 6.4, AnomalyRate: 0.08,
	}
	Athlete = Profile{
		Name: "athlete", CycleMean: 27, CycleJitter: 2, PeriodLength: 4,
		HeartRate: 70, HeartRateJitter: 3, RestingHeartRate: 52,
		DailySteps: 14000, StepsJitter: 2500, SleepHours: 8, AnomalyRate: 0.02,
	}
)

// Profiles lists the built-in profiles in assignment order.
func Profiles() []Profile {
	return []Profile{Regular, Irregular, Athlete}
}

// ProfileFor returns the built-in profile for the i-th simulated user.
func ProfileFor(i int) Profile {
	p := Profiles()
	if i < 0 {
		i = -i
	}
	return p[i%len(p)]
}
