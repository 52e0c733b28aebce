package gamedata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testStore() *Store {
	return NewStore(
		[]*Skill{
			{ID: PunchSkillID, Group: "PUNCH", Range: 2, HasAttack: true},
			{ID: 70, Group: "SWORD_BASE", Range: 3, HasAttack: true,
				Timings: SkillTimings{Preparation: 200 * time.Millisecond, Cast: 500 * time.Millisecond}},
			{ID: 91, Group: "HEAL", Range: 10},
		},
		[]*Character{
			{ID: 1907, CodeName: "CHAR_CH_MAN", WalkSpeed: 16, RunSpeed: 50, PickupRange: 3},
			{ID: 1954, CodeName: "MOB_CH_MANGNYANG", WalkSpeed: 12, RunSpeed: 30, DefaultAttack: PunchSkillID},
		},
		[]*Item{
			{ID: 3632, CodeName: "ITEM_CH_SWORD_01_A", Range: 7, AttackSkill: 70},
			{ID: 5221, CodeName: "ITEM_ETC_GOLD_01", Range: 0},
		},
	)
}

func TestAttackForWeapon(t *testing.T) {
	store := testStore()

	skill, err := store.AttackForWeapon(3632)
	if err != nil {
		t.Fatalf("AttackForWeapon(sword) error: %v", err)
	}
	if skill.ID != 70 {
		t.Fatalf("AttackForWeapon(sword) = skill %d, want 70", skill.ID)
	}

	// Unarmed falls back to the punch skill.
	skill, err = store.AttackForWeapon(0)
	if err != nil {
		t.Fatalf("AttackForWeapon(unarmed) error: %v", err)
	}
	if skill.ID != PunchSkillID {
		t.Fatalf("AttackForWeapon(unarmed) = skill %d, want punch", skill.ID)
	}

	// Non-weapon items have no attack mapping.
	if _, err := store.AttackForWeapon(5221); !errors.Is(err, ErrInvalidWeapon) {
		t.Fatalf("AttackForWeapon(gold) error = %v, want ErrInvalidWeapon", err)
	}
	if _, err := store.AttackForWeapon(9999); !errors.Is(err, ErrInvalidWeapon) {
		t.Fatalf("AttackForWeapon(unknown) error = %v, want ErrInvalidWeapon", err)
	}
}

func TestAttackForCharacter(t *testing.T) {
	store := testStore()

	skill, err := store.AttackForCharacter(1954)
	if err != nil {
		t.Fatalf("AttackForCharacter(monster) error: %v", err)
	}
	if skill.ID != PunchSkillID {
		t.Fatalf("AttackForCharacter(monster) = skill %d, want punch", skill.ID)
	}

	if _, err := store.AttackForCharacter(1907); !errors.Is(err, ErrSkillNotFound) {
		t.Fatalf("AttackForCharacter(player species) error = %v, want ErrSkillNotFound", err)
	}
	if _, err := store.AttackForCharacter(4242); !errors.Is(err, ErrCharacterNotFound) {
		t.Fatalf("AttackForCharacter(unknown) error = %v, want ErrCharacterNotFound", err)
	}
}

func TestAttackRange(t *testing.T) {
	store := testStore()
	skill, _ := store.Skill(70)

	if got := store.AttackRange(skill, 3632); got != 10 {
		t.Fatalf("AttackRange(sword skill, sword) = %v, want 10", got)
	}
	if got := store.AttackRange(skill, 0); got != 3 {
		t.Fatalf("AttackRange(sword skill, unarmed) = %v, want 3", got)
	}
}

func TestLoadTables(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	write(skillFile,
		"1\t1\tPUNCH\t20\t0\t0\t0\t0\tatt|1\n"+
			"1\t70\tSWORD_BASE\t30\t200\t500\t0\t300\tatt|3\n"+
			"0\t71\tDISABLED\t30\t0\t0\t0\t0\t\n"+
			"1\t91\tHEAL\t100\t100\t1000\t0\t0\theal|50\n")
	write(characterFile,
		"1\t1907\tCHAR_CH_MAN\t16\t50\t30\t0\n"+
			"1\t1954\tMOB_CH_MANGNYANG\t12\t30\t0\t1\n")
	write(itemFile,
		"1\t3632\tITEM_CH_SWORD_01_A\t70\t70\n"+
			"1\t5221\tITEM_ETC_GOLD_01\t0\t0\n")

	store, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	skill, err := store.Skill(70)
	if err != nil {
		t.Fatalf("Skill(70) error: %v", err)
	}
	if skill.Range != 3 {
		t.Errorf("skill range = %v, want 3", skill.Range)
	}
	if skill.Timings.Preparation != 200*time.Millisecond || skill.Timings.Cast != 500*time.Millisecond {
		t.Errorf("skill timings = %+v", skill.Timings)
	}
	if !skill.HasAttack {
		t.Errorf("sword skill should carry an attack")
	}

	if _, err := store.Skill(71); !errors.Is(err, ErrSkillNotFound) {
		t.Errorf("disabled row was loaded")
	}

	heal, err := store.Skill(91)
	if err != nil {
		t.Fatalf("Skill(91) error: %v", err)
	}
	if heal.HasAttack {
		t.Errorf("heal skill should not carry an attack")
	}

	character, err := store.Character(1907)
	if err != nil {
		t.Fatalf("Character(1907) error: %v", err)
	}
	if character.PickupRange != 3 {
		t.Errorf("pickup range = %v, want 3", character.PickupRange)
	}
}

func TestLoadMalformedRow(t *testing.T) {
	dir := t.TempDir()
	content := "1\tnot-a-number\tPUNCH\t20\t0\t0\t0\t0\t\n"
	if err := os.WriteFile(filepath.Join(dir, skillFile), []byte(content), 0o644); err != nil {
		t.Fatalf("writing table: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatalf("Load() succeeded on malformed row")
	}
}
