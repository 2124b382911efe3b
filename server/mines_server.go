package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/tomasstrnad1997/minesbot/mines"
	"github.com/tomasstrnad1997/minesbot/protocol"
)

type Player struct {
	client     net.Conn
	id         uint32
	connected  bool
	writeMutex sync.Mutex
}

type MessageHandler func(data []byte, source *Player) error

// BoardFactory builds the board for a requested game.
type BoardFactory func(params mines.GameParams) (*mines.Board, error)

type Config struct {
	Name string
	// Port 0 picks a free port
	Port     uint16
	NewBoard BoardFactory
	Logger   *slog.Logger
}

type command struct {
	message []byte
	player  *Player
}

// Server hosts a single game shared by every connected player.
type Server struct {
	Name           string
	listener       net.Listener
	board          *mines.Board
	params         mines.GameParams
	gameRunning    bool
	newBoard       BoardFactory
	handlers       map[protocol.MessageType]MessageHandler
	messageChannel chan command
	players        map[uint32]*Player
	playersMux     sync.Mutex
	logger         *slog.Logger
	done           chan struct{}
	closeOnce      sync.Once
	wg             sync.WaitGroup
}

func defaultBoard(params mines.GameParams) (*mines.Board, error) {
	return mines.CreateBoardFromParams(params, nil)
}

func (server *Server) Addr() net.Addr {
	return server.listener.Addr()
}

func (server *Server) Port() uint16 {
	return uint16(server.listener.Addr().(*net.TCPAddr).Port)
}

func (server *Server) NumberOfPlayers() int {
	server.playersMux.Lock()
	defer server.playersMux.Unlock()
	count := 0
	for _, player := range server.players {
		if player.connected {
			count++
		}
	}
	return count
}

func (server *Server) StartGame(params mines.GameParams) error {
	board, err := server.newBoard(params)
	if err != nil {
		return err
	}
	server.board = board
	server.params = params
	server.broadcastTextMessage(fmt.Sprintf("Starting a new game...\nNumber of mines %d", params.Mines))
	server.logger.Info("starting a new game", "height", params.Height, "width", params.Width, "mines", params.Mines, "cascade", params.Cascade)
	startMsg, err := protocol.EncodeGameStart(params)
	if err != nil {
		return err
	}
	server.broadcast(startMsg)
	server.gameRunning = true
	gamesStarted.Inc()
	return nil
}

func (server *Server) broadcastTextMessage(message string) {
	encoded, err := protocol.EncodeTextMessage(message)
	if err != nil {
		server.logger.Error("failed to create message", "err", err)
		return
	}
	server.broadcast(encoded)
}

func (server *Server) broadcast(data []byte) {
	server.playersMux.Lock()
	defer server.playersMux.Unlock()
	for _, player := range server.players {
		server.sendMessage(data, player)
	}
}

func (server *Server) sendTextMessage(msg string, player *Player) {
	encoded, err := protocol.EncodeTextMessage(msg)
	if err != nil {
		server.logger.Error("failed to create message", "err", err)
		return
	}
	server.sendMessage(encoded, player)
}

func (server *Server) sendMessage(data []byte, player *Player) {
	player.writeMutex.Lock()
	defer player.writeMutex.Unlock()
	if !player.connected {
		return
	}
	if _, err := player.client.Write(data); err != nil {
		server.logger.Warn("write failed", "player", player.id, "err", err)
	}
}

// sendInitialMessages brings a player joining a running game up to date.
func (server *Server) sendInitialMessages(player *Player) error {
	startMsg, err := protocol.EncodeGameStart(server.params)
	if err != nil {
		return err
	}
	server.sendMessage(startMsg, player)
	updateMsg, err := protocol.EncodeCellUpdates(server.board.CreateCellUpdates())
	if err != nil {
		return err
	}
	server.sendMessage(updateMsg, player)
	return nil
}

func (server *Server) handleRequest(player *Player) {
	defer server.wg.Done()
	reader := bufio.NewReader(player.client)
	server.logger.Info("player connected", "player", player.id, "remote", player.client.RemoteAddr().String())
	server.broadcastTextMessage(fmt.Sprintf("Player %d connected from %s", player.id, player.client.RemoteAddr()))
	playersConnected.Inc()
	defer playersConnected.Dec()
	for {
		message, err := protocol.ReadMessage(reader)
		if err != nil {
			server.logger.Info("player disconnected", "player", player.id, "err", err)
			player.writeMutex.Lock()
			player.connected = false
			player.writeMutex.Unlock()
			player.client.Close()
			server.broadcastTextMessage(fmt.Sprintf("Player %d disconnected", player.id))
			return
		}
		select {
		case server.messageChannel <- command{message, player}:
		case <-server.done:
			return
		}
	}
}

func (server *Server) HandleMessage(data []byte, source *Player) error {
	if len(data) == 0 {
		return fmt.Errorf("Cannot handle empty message")
	}
	msgType := protocol.MessageType(data[0])
	handler, exists := server.handlers[msgType]
	if !exists {
		return fmt.Errorf("No handler registered for message type: %d", msgType)
	}
	return handler(data, source)
}

func (server *Server) registerHandler(msgType protocol.MessageType, handler MessageHandler) {
	server.handlers[msgType] = handler
}

func (server *Server) registerHandlers() {
	server.registerHandler(protocol.StartGame, func(bytes []byte, source *Player) error {
		params, err := protocol.DecodeGameStart(bytes)
		if err != nil {
			return err
		}
		if server.gameRunning {
			msg, err := protocol.EncodeGameEnd(protocol.Aborted)
			if err != nil {
				return err
			}
			server.broadcast(msg)
			gamesEnded.WithLabelValues("aborted").Inc()
		}
		server.broadcastTextMessage(fmt.Sprintf("Player %d requested new game", source.id))
		return server.StartGame(*params)
	})
	server.registerHandler(protocol.MoveCommand, func(bytes []byte, source *Player) error {
		if !server.gameRunning {
			server.sendTextMessage("Game not running. Cant make moves.", source)
			return nil
		}
		move, err := protocol.DecodeMove(bytes)
		if err != nil {
			return err
		}
		move.PlayerId = source.id
		moveResult, err := server.board.MakeMove(*move)
		if err != nil {
			var invalid *mines.InvalidMoveError
			if errors.As(err, &invalid) {
				server.sendTextMessage(err.Error(), source)
				moveResult = &mines.MoveResult{Result: mines.NoChange}
			} else {
				return err
			}
		}
		movesHandled.Inc()
		// Every move is answered, possibly with an empty update
		encoded, err := protocol.EncodeCellUpdates(server.board.CreateUpdatedCells(moveResult.UpdatedCells))
		if err != nil {
			return err
		}
		server.broadcast(encoded)
		var endType protocol.GameEndType
		switch moveResult.Result {
		case mines.MineBlown:
			endType = protocol.Loss
		case mines.GameWon:
			endType = protocol.Win
		default:
			return nil
		}
		endMsg, err := protocol.EncodeGameEnd(endType)
		if err != nil {
			return err
		}
		server.broadcast(endMsg)
		server.gameRunning = false
		if endType == protocol.Win {
			gamesEnded.WithLabelValues("win").Inc()
		} else {
			gamesEnded.WithLabelValues("loss").Inc()
		}
		server.logger.Info("game ended", "result", endType, "player", source.id)
		return nil
	})
}

func (server *Server) manageCommands() {
	defer server.wg.Done()
	for {
		select {
		case command := <-server.messageChannel:
			if command.message == nil {
				server.join(command.player)
				continue
			}
			if err := server.HandleMessage(command.message, command.player); err != nil {
				server.logger.Warn("failed to handle message", "player", command.player.id, "err", err)
			}
		case <-server.done:
			return
		}
	}
}

func (server *Server) serverLoop() {
	defer server.wg.Done()
	var id uint32 = 1
	for {
		conn, err := server.listener.Accept()
		if err != nil {
			select {
			case <-server.done:
			default:
				server.logger.Error("accept failed", "err", err)
			}
			return
		}
		player := &Player{
			id:        id,
			client:    conn,
			connected: true,
		}
		// Registration and the catch-up messages go through the command
		// goroutine so they never interleave with a move.
		server.wg.Add(1)
		go func() {
			select {
			case server.messageChannel <- command{nil, player}:
			case <-server.done:
				conn.Close()
				server.wg.Done()
			}
		}()
		id++
	}
}

func (server *Server) join(player *Player) {
	server.playersMux.Lock()
	select {
	case <-server.done:
		// Close already walked the players
		server.playersMux.Unlock()
		player.client.Close()
		server.wg.Done()
		return
	default:
	}
	server.players[player.id] = player
	server.playersMux.Unlock()
	if server.gameRunning {
		if err := server.sendInitialMessages(player); err != nil {
			server.logger.Warn("failed to send game state", "player", player.id, "err", err)
		}
	}
	go server.handleRequest(player)
}

// Spawn listens on cfg.Port and serves until ctx is done or Close is called.
func Spawn(ctx context.Context, cfg Config) (*Server, error) {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("0.0.0.0:%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to start server: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newBoard := cfg.NewBoard
	if newBoard == nil {
		newBoard = defaultBoard
	}
	server := &Server{
		Name:           cfg.Name,
		listener:       listener,
		newBoard:       newBoard,
		handlers:       make(map[protocol.MessageType]MessageHandler),
		messageChannel: make(chan command),
		players:        make(map[uint32]*Player),
		logger:         logger.With("server", cfg.Name),
		done:           make(chan struct{}),
	}
	server.registerHandlers()
	server.wg.Add(2)
	go server.manageCommands()
	go server.serverLoop()
	context.AfterFunc(ctx, func() { server.Close() })
	server.logger.Info("server started", "addr", listener.Addr().String())
	return server, nil
}

// Close stops accepting players, disconnects everyone and waits for the
// server goroutines to exit.
func (server *Server) Close() error {
	var err error
	server.closeOnce.Do(func() {
		close(server.done)
		err = server.listener.Close()
		server.playersMux.Lock()
		for _, player := range server.players {
			player.client.Close()
		}
		server.playersMux.Unlock()
		server.wg.Wait()
	})
	return err
}
