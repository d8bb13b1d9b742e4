package game

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
)

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

// Digest hashes the persisted projection of s: field statuses, every saved
// scalar, the tutorial step and the shown facts. The current view, modal
// flags, the choice text and derived production are left out, so a state and
// its reloaded copy share a digest.
func Digest(s State) string {
	h := sha256.New()
	var tmp [8]byte

	writeI64(h, &tmp, int64(s.Year))
	writeF64(h, &tmp, s.Budget)
	writeI64(h, &tmp, int64(s.Score))
	writeF64(h, &tmp, s.GlobalTemperature)
	writeF64(h, &tmp, s.NorwayTechRank)
	writeF64(h, &tmp, s.ForeignDependency)
	writeF64(h, &tmp, s.ClimateDamage)
	writeF64(h, &tmp, s.SustainabilityScore)
	writeF64(h, &tmp, s.SaturationLevel)
	writeString(h, &tmp, string(s.GamePhase))
	writeI64(h, &tmp, int64(s.GoodChoiceStreak))
	writeI64(h, &tmp, int64(s.BadChoiceCount))
	writeI64(h, &tmp, int64(s.YearlyPhaseOutCapacity))
	writeI64(h, &tmp, int64(s.TutorialStep))
	h.Write([]byte{boolByte(s.MultiPhaseOutMode), boolByte(s.DataLayerUnlocked)})

	writeI64(h, &tmp, int64(len(s.Fields)))
	for _, f := range s.Fields {
		writeString(h, &tmp, f.Name)
		writeString(h, &tmp, string(f.Status))
	}

	names := make([]string, 0, len(s.Shutdowns))
	for k := range s.Shutdowns {
		names = append(names, k)
	}
	sort.Strings(names)
	writeI64(h, &tmp, int64(len(names)))
	for _, k := range names {
		writeString(h, &tmp, k)
		writeI64(h, &tmp, int64(s.Shutdowns[k]))
	}

	for _, c := range Categories() {
		writeF64(h, &tmp, s.Investments[c])
	}

	writeI64(h, &tmp, int64(len(s.Achievements)))
	for _, a := range s.Achievements {
		writeString(h, &tmp, string(a))
	}
	writeI64(h, &tmp, int64(len(s.SelectedFields)))
	for _, n := range s.SelectedFields {
		writeString(h, &tmp, n)
	}
	writeI64(h, &tmp, int64(len(s.PlayerChoices)))
	writeI64(h, &tmp, int64(len(s.ShownFacts)))
	for _, f := range s.ShownFacts {
		writeString(h, &tmp, f)
	}

	return hex.EncodeToString(h.Sum(nil))
}

func writeI64(h hashWriter, tmp *[8]byte, v int64) {
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	h.Write(tmp[:])
}

func writeF64(h hashWriter, tmp *[8]byte, v float64) {
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	h.Write(tmp[:])
}

func writeString(h hashWriter, tmp *[8]byte, s string) {
	writeI64(h, tmp, int64(len(s)))
	h.Write([]byte(s))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
