package ipc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultStatusPath holds the active lyric line for status bars.
const DefaultStatusPath = "/tmp/lyrics"

func logger() *zerolog.Logger {
	l := log.With().Str("component", "ipc").Logger()
	return &l
}

// Server broadcasts messages to GUI clients over a unix socket.
type Server struct {
	socketPath      string
	statusPath      string
	listener        net.Listener
	clientConns     map[net.Conn]struct{}
	clientConnsLock sync.Mutex

	// last lyrics and line frames, replayed to new clients
	lastLyrics []byte
	lastLine   []byte
	lastLock   sync.Mutex

	lockFile     *os.File
	lockFilePath string
}

// NewServer 创建IPC服务
func NewServer(socketPath string) *Server {
	return &Server{
		socketPath:   socketPath,
		statusPath:   DefaultStatusPath,
		clientConns:  make(map[net.Conn]struct{}),
		lockFilePath: socketPath + ".lock",
	}
}

// SetStatusPath changes the active-line file. An empty path disables it.
func (s *Server) SetStatusPath(path string) {
	s.statusPath = path
}

func (s *Server) checkAndCleanOldLock() {
	content, err := os.ReadFile(s.lockFilePath)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		logger().Warn().Err(err).Msg("Failed to read lock file, removing it")
		os.Remove(s.lockFilePath)
		return
	}

	pidStr := strings.TrimSpace(string(content))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		logger().Warn().Str("pid_str", pidStr).Msg("Invalid PID in lock file, removing it")
		os.Remove(s.lockFilePath)
		return
	}

	// kill(pid, 0) 只检查进程是否存在
	if syscall.Kill(pid, 0) != nil {
		logger().Info().Int("old_pid", pid).Msg("Process in lock file is not running, removing lock file")
		os.Remove(s.lockFilePath)
		return
	}

	logger().Info().Int("existing_pid", pid).Msg("Another process is still running")
}

func (s *Server) acquireLock() error {
	s.checkAndCleanOldLock()

	file, err := os.OpenFile(s.lockFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		if err == syscall.EWOULDBLOCK {
			return fmt.Errorf("another lyrics server instance is already running")
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return fmt.Errorf("failed to write PID to lock file: %w", err)
	}

	s.lockFile = file
	logger().Info().Str("lock_file", s.lockFilePath).Int("pid", os.Getpid()).Msg("Acquired process lock")
	return nil
}

func (s *Server) releaseLock() {
	if s.lockFile == nil {
		return
	}
	syscall.Flock(int(s.lockFile.Fd()), syscall.LOCK_UN)
	s.lockFile.Close()
	os.Remove(s.lockFilePath)
	logger().Info().Str("lock_file", s.lockFilePath).Msg("Released process lock")
	s.lockFile = nil
}

// Start 获取进程锁并开始监听
func (s *Server) Start() error {
	if err := s.acquireLock(); err != nil {
		return err
	}

	if err := os.RemoveAll(s.socketPath); err != nil {
		s.releaseLock()
		return err
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		s.releaseLock()
		return err
	}
	s.listener = listener

	logger().Info().Str("socket_path", s.socketPath).Msg("IPC server listening")

	go s.acceptConnections()

	return nil
}

func (s *Server) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger().Info().Msg("IPC listener closed")
				return
			}
			logger().Error().Err(err).Msg("Failed to accept IPC connection")
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	s.clientConnsLock.Lock()
	s.clientConns[conn] = struct{}{}

	s.lastLock.Lock()
	var err error
	for _, frame := range [][]byte{s.lastLyrics, s.lastLine} {
		if len(frame) > 0 && err == nil {
			_, err = conn.Write(frame)
		}
	}
	s.lastLock.Unlock()
	s.clientConnsLock.Unlock()

	logger().Info().Msg("GUI client connected")
	if err != nil {
		logger().Error().Err(err).Msg("Failed to send initial lyrics")
	}

	buf := make([]byte, 1)
	for {
		if _, err := conn.Read(buf); err != nil {
			break
		}
	}

	s.clientConnsLock.Lock()
	delete(s.clientConns, conn)
	s.clientConnsLock.Unlock()
	conn.Close()
	logger().Info().Msg("GUI client disconnected")
}

// Broadcast 向所有客户端发送消息
func (s *Server) Broadcast(msg Message) {
	frame, err := msg.Encode()
	if err != nil {
		logger().Error().Err(err).Str("type", msg.Type).Msg("Failed to encode message")
		return
	}

	s.lastLock.Lock()
	switch msg.Type {
	case TypeLyrics:
		s.lastLyrics = frame
		s.lastLine = nil
	case TypeLine:
		s.lastLine = frame
	}
	s.lastLock.Unlock()

	if msg.Type == TypeLine && msg.Line != nil && s.statusPath != "" {
		if err := writeFileAtomic(s.statusPath, []byte(msg.Line.Words+"\n"), 0644); err != nil {
			logger().Warn().Err(err).Str("path", s.statusPath).Msg("Failed to write status file")
		}
	}

	s.clientConnsLock.Lock()
	defer s.clientConnsLock.Unlock()

	for conn := range s.clientConns {
		if _, err := conn.Write(frame); err != nil {
			logger().Error().Err(err).Msg("Failed to write to client, removing")
			conn.Close()
			delete(s.clientConns, conn)
		}
	}
}

// Close 关闭监听并释放进程锁
func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}
	s.releaseLock()
}

// writeFileAtomic replaces path so readers never see a partial line.
func writeFileAtomic(path string, content []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to file %s: %w", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	return os.Rename(tmp.Name(), path)
}
