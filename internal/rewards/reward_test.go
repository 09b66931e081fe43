package rewards

import (
	"testing"
	"time"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name       string
		difficulty int
		attempt    int
		timeBonus  bool
		want       Reward
	}{
		{"first try with bonus", 3, 1, true, Reward{XP: 36, Coins: 3}},
		{"second try no bonus", 3, 2, false, Reward{XP: 21, Coins: 0}},
		{"first try no bonus", 1, 1, false, Reward{XP: 10, Coins: 1}},
		{"third try", 4, 3, false, Reward{XP: 16, Coins: 0}},
		{"fourth try with bonus", 1, 4, true, Reward{XP: 2, Coins: 0}},
		{"tenth try", 4, 10, false, Reward{XP: 8, Coins: 0}},
		{"attempt zero treated as first", 2, 0, false, Reward{XP: 20, Coins: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.difficulty, tt.attempt, tt.timeBonus)
			if got != tt.want {
				t.Errorf("Calculate(%d, %d, %v) = %+v, want %+v", tt.difficulty, tt.attempt, tt.timeBonus, got, tt.want)
			}
		})
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	for d := 1; d <= 4; d++ {
		for a := 1; a <= 6; a++ {
			for _, bonus := range []bool{false, true} {
				if Calculate(d, a, bonus) != Calculate(d, a, bonus) {
					t.Fatalf("Calculate(%d, %d, %v) not deterministic", d, a, bonus)
				}
			}
		}
	}
}

func TestCalculate_FirstTryWithBonusDominates(t *testing.T) {
	for d := 1; d <= 4; d++ {
		best := Calculate(d, 1, true)
		for a := 2; a <= 8; a++ {
			for _, bonus := range []bool{false, true} {
				r := Calculate(d, a, bonus)
				if r.XP > best.XP || r.Coins > best.Coins {
					t.Errorf("d=%d: attempt %d bonus=%v gives %+v, more than first try %+v", d, a, bonus, r, best)
				}
			}
		}
	}
}

func TestForAttempt(t *testing.T) {
	if r := ForAttempt(false, 4, 1, time.Second, DefaultTimeBonusUnder); r != (Reward{}) {
		t.Errorf("incorrect attempt earned %+v", r)
	}
	if r := ForAttempt(true, 3, 1, 59*time.Second, DefaultTimeBonusUnder); r.XP != 36 {
		t.Errorf("59s should earn time bonus, got %+v", r)
	}
	if r := ForAttempt(true, 3, 1, 60*time.Second, DefaultTimeBonusUnder); r.XP != 30 {
		t.Errorf("60s should not earn time bonus, got %+v", r)
	}
}
