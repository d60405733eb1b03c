// Package slot stores slot-to-action bindings per palette and job, with
// job-specific and global storage modes, optional pet layering, and
// explicit tombstones for cleared slots.
package slot

import "fmt"

// Kind identifies the variant of an action binding.
type Kind uint8

const (
	// KindNone is the zero value and never appears in a stored binding.
	KindNone Kind = iota
	// KindSpell casts a spell by id.
	KindSpell
	// KindAbility uses a job ability by id.
	KindAbility
	// KindWeaponskill performs a weaponskill by id.
	KindWeaponskill
	// KindItem uses an inventory item by id.
	KindItem
	// KindEquip swaps the item into an equipment slot.
	KindEquip
	// KindMacro runs a user macro script.
	KindMacro
	// KindPetCommand issues a pet command by id.
	KindPetCommand
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSpell:
		return "spell"
	case KindAbility:
		return "ability"
	case KindWeaponskill:
		return "weaponskill"
	case KindItem:
		return "item"
	case KindEquip:
		return "equip"
	case KindMacro:
		return "macro"
	case KindPetCommand:
		return "petcommand"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// kindNameMap maps kind names to Kind values.
var kindNameMap = map[string]Kind{
	"spell":       KindSpell,
	"ability":     KindAbility,
	"weaponskill": KindWeaponskill,
	"item":        KindItem,
	"equip":       KindEquip,
	"macro":       KindMacro,
	"petcommand":  KindPetCommand,
}

// KindFromName returns the Kind for a given name.
// Returns KindNone if the name is not recognized.
func KindFromName(name string) Kind {
	if k, ok := kindNameMap[name]; ok {
		return k
	}
	return KindNone
}

// Target is a token from the fixed targeting vocabulary.
type Target string

// Targeting vocabulary.
const (
	TargetNone     Target = ""
	TargetEnemy    Target = "t"
	TargetSelf     Target = "me"
	TargetSelect   Target = "st"
	TargetPlayer   Target = "stpc"
	TargetNPC      Target = "stnpc"
	TargetBattle   Target = "bt"
	TargetPet      Target = "pet"
	TargetFocus    Target = "focust"
)

// validTargets is the closed set of accepted target tokens.
var validTargets = map[Target]bool{
	TargetNone:   true,
	TargetEnemy:  true,
	TargetSelf:   true,
	TargetSelect: true,
	TargetPlayer: true,
	TargetNPC:    true,
	TargetBattle: true,
	TargetPet:    true,
	TargetFocus:  true,
}

// Valid returns true if the target token is in the vocabulary.
func (t Target) Valid() bool {
	return validTargets[t]
}

// EquipSlot identifies one of the 16 equipment slots.
type EquipSlot uint8

const (
	EquipMain EquipSlot = iota
	EquipSub
	EquipRange
	EquipAmmo
	EquipHead
	EquipBody
	EquipHands
	EquipLegs
	EquipFeet
	EquipNeck
	EquipWaist
	EquipEarLeft
	EquipEarRight
	EquipRingLeft
	EquipRingRight
	EquipBack

	// NumEquipSlots is the count of equipment slots.
	NumEquipSlots = 16
)

// String returns a human-readable name for the equipment slot.
func (e EquipSlot) String() string {
	names := [...]string{
		"main", "sub", "range", "ammo", "head", "body", "hands", "legs",
		"feet", "neck", "waist", "earleft", "earright", "ringleft",
		"ringright", "back",
	}
	if int(e) < len(names) {
		return names[e]
	}
	return fmt.Sprintf("EquipSlot(%d)", e)
}

// Valid returns true if the slot value is one of the 16 equipment slots.
func (e EquipSlot) Valid() bool {
	return e < NumEquipSlots
}

// Binding is an action descriptor attached to a slot. The Kind selects
// which fields are meaningful: ID for spells, abilities, weaponskills,
// items and pet commands; EquipSlot for equip actions; Script for macros.
type Binding struct {
	// Kind selects the action variant.
	Kind Kind `json:"kind"`

	// ID is the numeric action id for id-carrying kinds.
	ID int `json:"id,omitempty"`

	// Target is an optional token from the targeting vocabulary.
	Target Target `json:"target,omitempty"`

	// EquipSlot is the destination slot for KindEquip.
	EquipSlot EquipSlot `json:"equip_slot,omitempty"`

	// Script is the macro body for KindMacro.
	Script string `json:"script,omitempty"`

	// Label is the display name shown on the bar.
	Label string `json:"label,omitempty"`
}

// Validate checks variant-specific field requirements.
func (b Binding) Validate() error {
	switch b.Kind {
	case KindSpell, KindAbility, KindWeaponskill, KindItem, KindPetCommand:
		if b.ID <= 0 {
			return fmt.Errorf("%w: %s requires a positive id", ErrInvalidBinding, b.Kind)
		}
	case KindEquip:
		if !b.EquipSlot.Valid() {
			return fmt.Errorf("%w: equip slot %d", ErrInvalidBinding, b.EquipSlot)
		}
	case KindMacro:
		if b.Script == "" {
			return fmt.Errorf("%w: macro requires a script", ErrInvalidBinding)
		}
	default:
		return fmt.Errorf("%w: kind %s", ErrInvalidBinding, b.Kind)
	}
	if !b.Target.Valid() {
		return fmt.Errorf("%w: target %q", ErrInvalidBinding, b.Target)
	}
	return nil
}

// State classifies a slot lookup result. Cleared is distinct from Empty:
// an explicitly cleared slot stays cleared across reloads and is never
// resurrected by default population.
type State uint8

const (
	// StateEmpty means the slot was never assigned.
	StateEmpty State = iota
	// StateCleared means the slot was explicitly cleared (tombstone).
	StateCleared
	// StateBound means the slot holds a binding.
	StateBound
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateCleared:
		return "cleared"
	case StateBound:
		return "bound"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Slot is a resolved slot: its state plus the binding when bound.
type Slot struct {
	State   State
	Binding Binding
}

// Empty returns the defined empty slot.
func Empty() Slot {
	return Slot{State: StateEmpty}
}

// Cleared returns the tombstone slot.
func Cleared() Slot {
	return Slot{State: StateCleared}
}

// Bound wraps a binding in a resolved slot.
func Bound(b Binding) Slot {
	return Slot{State: StateBound, Binding: b}
}

// IsBound reports whether the slot holds a binding.
func (s Slot) IsBound() bool {
	return s.State == StateBound
}
