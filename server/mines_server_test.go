package server_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"testing"
	"time"

	"github.com/tomasstrnad1997/minesbot/agent"
	"github.com/tomasstrnad1997/minesbot/mines"
	"github.com/tomasstrnad1997/minesbot/protocol"
	"github.com/tomasstrnad1997/minesbot/server"
)

func fixedBoard(params mines.GameParams) (*mines.Board, error) {
	board, err := mines.CreateBoardWithMines(params.Height, params.Width, []mines.Cell{{Row: 2, Col: 2}})
	if err != nil {
		return nil, err
	}
	board.Cascade = params.Cascade
	return board, nil
}

func spawn(t *testing.T) *server.Server {
	t.Helper()
	srv, err := server.Spawn(context.Background(), server.Config{Name: "test", NewBoard: fixedBoard})
	if err != nil {
		t.Fatalf("Failed to spawn server: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func dial(t *testing.T, srv *server.Server) *protocol.Conn {
	t.Helper()
	conn, err := protocol.Dial(context.Background(), fmt.Sprintf("127.0.0.1:%d", srv.Port()))
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	conn.Timeout = 5 * time.Second
	t.Cleanup(func() { conn.Close() })
	return conn
}

func receiveType(t *testing.T, conn *protocol.Conn, msgType protocol.MessageType) []byte {
	t.Helper()
	for {
		data, err := conn.Receive()
		if err != nil {
			t.Fatalf("Receive failed while waiting for %d: %v", msgType, err)
		}
		if protocol.MessageType(data[0]) == msgType {
			return data
		}
	}
}

func TestRemotePlayerFinishesGame(t *testing.T) {
	srv := spawn(t)
	for seed := int64(1); seed <= 5; seed++ {
		conn := dial(t, srv)
		player := agent.NewRemotePlayer(conn, rand.New(rand.NewSource(seed)), nil)
		params := mines.GameParams{Height: 3, Width: 3, Mines: 1, Cascade: true}
		result, err := player.Play(context.Background(), params)
		if err != nil {
			t.Fatalf("seed %d: Play failed: %v", seed, err)
		}
		if !result.State.Terminal() {
			t.Fatalf("seed %d: game did not finish: %+v", seed, result)
		}
		if result.State == agent.Won && result.MinesFound != 1 {
			t.Fatalf("seed %d: won without locating the mine: %+v", seed, result)
		}
		conn.Close()
	}
}

func TestMoveWithoutGame(t *testing.T) {
	srv := spawn(t)
	conn := dial(t, srv)
	move, _ := protocol.EncodeMove(mines.Move{Cell: mines.Cell{Row: 0, Col: 0}, Type: mines.Reveal})
	if err := conn.Send(move); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	for {
		data := receiveType(t, conn, protocol.TextMessage)
		msg, err := protocol.DecodeTextMessage(data)
		if err != nil {
			t.Fatalf("Failed to decode text: %v", err)
		}
		if msg == "Game not running. Cant make moves." {
			return
		}
	}
}

func TestLateJoinerReceivesState(t *testing.T) {
	srv := spawn(t)
	first := dial(t, srv)
	params := mines.GameParams{Height: 3, Width: 3, Mines: 1}
	start, _ := protocol.EncodeGameStart(params)
	if err := first.Send(start); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	receiveType(t, first, protocol.StartGame)
	move, _ := protocol.EncodeMove(mines.Move{Cell: mines.Cell{Row: 0, Col: 0}, Type: mines.Reveal})
	if err := first.Send(move); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	receiveType(t, first, protocol.CellUpdate)

	second := dial(t, srv)
	got, err := protocol.DecodeGameStart(receiveType(t, second, protocol.StartGame))
	if err != nil || *got != params {
		t.Fatalf("Expected %+v, got %+v %v", params, got, err)
	}
	cells, err := protocol.DecodeCellUpdates(receiveType(t, second, protocol.CellUpdate))
	if err != nil {
		t.Fatalf("Failed to decode cell updates: %v", err)
	}
	if len(cells) != 1 || cells[0].Cell != (mines.Cell{Row: 0, Col: 0}) || cells[0].Value != 0 {
		t.Fatalf("Expected the revealed (0, 0) tile, got %v", cells)
	}
}

func TestNewStartAbortsRunningGame(t *testing.T) {
	srv := spawn(t)
	conn := dial(t, srv)
	start, _ := protocol.EncodeGameStart(mines.GameParams{Height: 3, Width: 3, Mines: 1})
	conn.Send(start)
	receiveType(t, conn, protocol.StartGame)
	conn.Send(start)
	end, err := protocol.DecodeGameEnd(receiveType(t, conn, protocol.GameEnd))
	if err != nil || end != protocol.Aborted {
		t.Fatalf("Expected Aborted, got %v %v", end, err)
	}
	receiveType(t, conn, protocol.StartGame)
}

func TestCloseDisconnectsJoiningPlayers(t *testing.T) {
	srv, err := server.Spawn(context.Background(), server.Config{Name: "closing", NewBoard: fixedBoard})
	if err != nil {
		t.Fatalf("Failed to spawn server: %v", err)
	}
	addr := fmt.Sprintf("127.0.0.1:%d", srv.Port())
	conns := make(chan *protocol.Conn, 20)
	for range 20 {
		go func() {
			conn, err := protocol.Dial(context.Background(), addr)
			if err != nil {
				conns <- nil
				return
			}
			conns <- conn
		}()
	}
	closed := make(chan struct{})
	go func() {
		srv.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatalf("Close did not return")
	}
	for range 20 {
		conn := <-conns
		if conn == nil {
			continue
		}
		conn.Timeout = 5 * time.Second
		for {
			_, err := conn.Receive()
			if err == nil {
				continue
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				t.Fatalf("Connection still open after Close")
			}
			break
		}
		conn.Close()
	}
}
