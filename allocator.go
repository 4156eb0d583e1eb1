package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

const allocatorMaxAttempts = 10

// RoomIDAllocator issues short room identifiers, collision-checked
// against the durable store.
type RoomIDAllocator struct {
	store Store
}

func NewRoomIDAllocator(store Store) *RoomIDAllocator {
	return &RoomIDAllocator{store: store}
}

// Allocate draws crypto-random 6-digit decimal ids until one is free,
// giving up after a bounded number of attempts and falling back to a
// timestamp+random composite that cannot collide in practice. Store
// errors propagate; they are never swallowed as a fallback trigger.
func (a *RoomIDAllocator) Allocate(ctx context.Context) (string, error) {
	for i := 0; i < allocatorMaxAttempts; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(900000))
		if err != nil {
			return "", fmt.Errorf("draw room id: %w", err)
		}
		roomID := fmt.Sprintf("%06d", n.Int64()+100000)

		exists, err := a.store.MatchExists(ctx, roomID)
		if err != nil {
			return "", err
		}
		if !exists {
			return roomID, nil
		}
	}

	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("draw room id suffix: %w", err)
	}
	return fmt.Sprintf("room_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(buf)), nil
}
