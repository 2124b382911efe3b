package agent_test

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"testing"
	"time"

	"github.com/tomasstrnad1997/minesbot/agent"
	"github.com/tomasstrnad1997/minesbot/knowledge"
	"github.com/tomasstrnad1997/minesbot/mines"
	"github.com/tomasstrnad1997/minesbot/protocol"
)

// serveOnce answers the game request and the first move with the given
// cell updates.
func serveOnce(conn *protocol.Conn, params mines.GameParams, cells []mines.UpdatedCell) {
	if _, err := conn.Receive(); err != nil {
		return
	}
	start, _ := protocol.EncodeGameStart(params)
	if err := conn.Send(start); err != nil {
		return
	}
	if _, err := conn.Receive(); err != nil {
		return
	}
	update, _ := protocol.EncodeCellUpdates(cells)
	conn.Send(update)
}

func TestRemotePlayerRejectsInconsistentBoard(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	// (0, 0) = 1 on a 1x3 board makes (0, 1) a mine, which is then reported
	// as a revealed zero.
	cells := []mines.UpdatedCell{
		{Cell: mines.Cell{Row: 0, Col: 0}, Value: 1},
		{Cell: mines.Cell{Row: 0, Col: 1}, Value: 0},
	}
	go serveOnce(protocol.NewConn(server), mines.GameParams{Height: 1, Width: 3, Mines: 1}, cells)

	conn := protocol.NewConn(client)
	conn.Timeout = 5 * time.Second
	player := agent.NewRemotePlayer(conn, rand.New(rand.NewSource(1)), nil)
	_, err := player.Play(context.Background(), mines.GameParams{Height: 1, Width: 3, Mines: 1})
	if !errors.Is(err, knowledge.ErrKnownMine) {
		t.Fatalf("Expected ErrKnownMine from an inconsistent server, got: %v", err)
	}
}
