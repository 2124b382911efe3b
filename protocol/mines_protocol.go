package protocol

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/tomasstrnad1997/minesbot/mines"
)

type MessageType byte

const (
	MoveCommand MessageType = 0x01
	TextMessage MessageType = 0x02
	StartGame   MessageType = 0x04
	CellUpdate  MessageType = 0x05
	GameEnd     MessageType = 0x07
)

type GameEndType byte

const (
	Win     GameEndType = 0x01
	Loss    GameEndType = 0x02
	Aborted GameEndType = 0x03
)

// Flags of the game start payload
const (
	CascadeFlag byte = 0x01
)

const (
	HeaderLength         = 6
	UpdateCellByteLength = 9
	MoveByteLength       = 13
	GameStartByteLength  = 3*4 + 1
	// MaxPayloadLength bounds what ReadMessage accepts from a peer
	MaxPayloadLength = 1 << 20
)

var (
	ErrInvalidPayloadSize = errors.New("invalid payload size")
	ErrShortMessage       = errors.New("data too short to decode")
)

func checkAndDecodeLength(data []byte, message MessageType) (int, error) {
	if len(data) < HeaderLength {
		return 0, ErrShortMessage
	}
	if MessageType(data[0]) != message {
		return 0, fmt.Errorf("Invalid message type for command E:%d R:%d", message, data[0])
	}
	payloadLength := int(binary.BigEndian.Uint32(data[2:HeaderLength]))
	if payloadLength != len(data)-HeaderLength {
		return payloadLength, fmt.Errorf("%w: header says %d, got %d", ErrInvalidPayloadSize, payloadLength, len(data)-HeaderLength)
	}
	return payloadLength, nil
}

func intToBytes(i int) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(i))
	return buf
}

func bytesToInt(bytes []byte) int {
	return int(int32(binary.BigEndian.Uint32(bytes)))
}

func writeHeader(buf *bytes.Buffer, tp MessageType, length int) error {
	buf.WriteByte(byte(tp))
	// Reserved byte for future use
	buf.WriteByte(0x00)
	if err := binary.Write(buf, binary.BigEndian, uint32(length)); err != nil {
		return fmt.Errorf("Failed to write length (%d)", length)
	}
	return nil
}

// ReadMessage reads one framed message, header included.
func ReadMessage(reader *bufio.Reader) ([]byte, error) {
	header := make([]byte, HeaderLength)
	if _, err := io.ReadFull(reader, header); err != nil {
		return nil, err
	}
	messageLength := int(binary.BigEndian.Uint32(header[2:HeaderLength]))
	if messageLength > MaxPayloadLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidPayloadSize, messageLength)
	}
	message := make([]byte, messageLength+HeaderLength)
	copy(message[0:HeaderLength], header)
	if _, err := io.ReadFull(reader, message[HeaderLength:]); err != nil {
		return nil, err
	}
	return message, nil
}

func EncodeGameEnd(endType GameEndType) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeHeader(&buf, GameEnd, 1); err != nil {
		return nil, err
	}
	buf.WriteByte(byte(endType))
	return buf.Bytes(), nil
}

func DecodeGameEnd(data []byte) (GameEndType, error) {
	length, err := checkAndDecodeLength(data, GameEnd)
	if err != nil {
		return 0, err
	}
	if length != 1 {
		return 0, ErrInvalidPayloadSize
	}
	return GameEndType(data[HeaderLength]), nil
}

func EncodeTextMessage(message string) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeHeader(&buf, TextMessage, len(message)); err != nil {
		return nil, err
	}
	buf.WriteString(message)
	return buf.Bytes(), nil
}

func DecodeTextMessage(data []byte) (string, error) {
	if _, err := checkAndDecodeLength(data, TextMessage); err != nil {
		return "", err
	}
	return string(data[HeaderLength:]), nil
}

func EncodeMove(move mines.Move) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeHeader(&buf, MoveCommand, MoveByteLength); err != nil {
		return nil, err
	}
	payload := make([]byte, MoveByteLength)
	payload[0] = byte(move.Type)
	copy(payload[1:5], intToBytes(move.Cell.Row))
	copy(payload[5:9], intToBytes(move.Cell.Col))
	binary.BigEndian.PutUint32(payload[9:13], move.PlayerId)
	buf.Write(payload)
	return buf.Bytes(), nil
}

func DecodeMove(data []byte) (*mines.Move, error) {
	length, err := checkAndDecodeLength(data, MoveCommand)
	if err != nil {
		return nil, err
	}
	if length != MoveByteLength {
		return nil, fmt.Errorf("%w: move payload %d", ErrInvalidPayloadSize, length)
	}
	payload := data[HeaderLength:]
	move := &mines.Move{
		Type:     mines.MoveType(payload[0]),
		Cell:     mines.Cell{Row: bytesToInt(payload[1:5]), Col: bytesToInt(payload[5:9])},
		PlayerId: binary.BigEndian.Uint32(payload[9:13]),
	}
	return move, nil
}

func encodeCellUpdate(cell mines.UpdatedCell) []byte {
	data := make([]byte, UpdateCellByteLength)
	copy(data[0:4], intToBytes(cell.Cell.Row))
	copy(data[4:8], intToBytes(cell.Cell.Col))
	data[8] = cell.Value
	return data
}

func decodeCellUpdate(data []byte) (*mines.UpdatedCell, error) {
	if len(data) != UpdateCellByteLength {
		return nil, fmt.Errorf("cell update length mismatch %d", len(data))
	}
	return &mines.UpdatedCell{
		Cell:  mines.Cell{Row: bytesToInt(data[0:4]), Col: bytesToInt(data[4:8])},
		Value: data[8],
	}, nil
}

func EncodeCellUpdates(cells []mines.UpdatedCell) ([]byte, error) {
	var buf bytes.Buffer
	payloadLength := len(cells) * UpdateCellByteLength
	if err := writeHeader(&buf, CellUpdate, payloadLength); err != nil {
		return nil, err
	}
	for _, cell := range cells {
		buf.Write(encodeCellUpdate(cell))
	}
	if payloadLength+HeaderLength != buf.Len() {
		return nil, fmt.Errorf("Incorrect payload length while encoding cell updates")
	}
	return buf.Bytes(), nil
}

func DecodeCellUpdates(data []byte) ([]mines.UpdatedCell, error) {
	payloadLength, err := checkAndDecodeLength(data, CellUpdate)
	if err != nil {
		return nil, err
	}
	if payloadLength%UpdateCellByteLength != 0 {
		return nil, fmt.Errorf("update cells payload length mismatch %d", payloadLength)
	}
	payload := data[HeaderLength:]
	cells := make([]mines.UpdatedCell, payloadLength/UpdateCellByteLength)
	for i := range cells {
		cell, err := decodeCellUpdate(payload[i*UpdateCellByteLength : (i+1)*UpdateCellByteLength])
		if err != nil {
			return nil, err
		}
		cells[i] = *cell
	}
	return cells, nil
}

func EncodeGameStart(params mines.GameParams) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeHeader(&buf, StartGame, GameStartByteLength); err != nil {
		return nil, err
	}
	payload := make([]byte, GameStartByteLength)
	copy(payload[0:4], intToBytes(params.Width))
	copy(payload[4:8], intToBytes(params.Height))
	copy(payload[8:12], intToBytes(params.Mines))
	if params.Cascade {
		payload[12] |= CascadeFlag
	}
	buf.Write(payload)
	return buf.Bytes(), nil
}

func DecodeGameStart(data []byte) (*mines.GameParams, error) {
	payloadLength, err := checkAndDecodeLength(data, StartGame)
	if err != nil {
		return nil, err
	}
	if payloadLength != GameStartByteLength {
		return nil, fmt.Errorf("decode game start payload incorrect length (%d)", payloadLength)
	}
	payload := data[HeaderLength:]
	params := &mines.GameParams{
		Width:   bytesToInt(payload[0:4]),
		Height:  bytesToInt(payload[4:8]),
		Mines:   bytesToInt(payload[8:12]),
		Cascade: payload[12]&CascadeFlag != 0,
	}
	return params, nil
}
