//go:build windows

// File: internal/errno/errno_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Winsock and Win32 codes mapped onto the portable vocabulary.

package errno

import (
	"syscall"

	"code.hybscloud.com/iox"

	"github.com/missionlove/nanomsg/api"
)

const (
	errorNetnameDeleted    syscall.Errno = 64
	errorWaitTimeout       syscall.Errno = 258
	errorOperationAborted  syscall.Errno = 995
	errorIOPending         syscall.Errno = 997
	errorConnectionRefused syscall.Errno = 1225
	errorConnectionAborted syscall.Errno = 1236
	wsaEINTR               syscall.Errno = 10004
	wsaEBADF               syscall.Errno = 10009
	wsaEACCES              syscall.Errno = 10013
	wsaEINVAL              syscall.Errno = 10022
	wsaEMFILE              syscall.Errno = 10024
	wsaEWOULDBLOCK         syscall.Errno = 10035
	wsaEINPROGRESS         syscall.Errno = 10036
	wsaEALREADY            syscall.Errno = 10037
	wsaENOTSOCK            syscall.Errno = 10038
	wsaEPROTONOSUPPORT     syscall.Errno = 10043
	wsaEOPNOTSUPP          syscall.Errno = 10045
	wsaEAFNOSUPPORT        syscall.Errno = 10047
	wsaEADDRINUSE          syscall.Errno = 10048
	wsaEADDRNOTAVAIL       syscall.Errno = 10049
	wsaENETDOWN            syscall.Errno = 10050
	wsaENETUNREACH         syscall.Errno = 10051
	wsaECONNABORTED        syscall.Errno = 10053
	wsaECONNRESET          syscall.Errno = 10054
	wsaENOBUFS             syscall.Errno = 10055
	wsaENOTCONN            syscall.Errno = 10057
	wsaETIMEDOUT           syscall.Errno = 10060
	wsaECONNREFUSED        syscall.Errno = 10061
	wsaEHOSTUNREACH        syscall.Errno = 10065
	wsaEDISCON             syscall.Errno = 10101
)

// IOPending is the code returned by an overlapped call that was queued.
const IOPending = errorIOPending

// WaitTimeout is returned by GetQueuedCompletionStatus when nothing arrived.
const WaitTimeout = errorWaitTimeout

func portable(code syscall.Errno) error {
	switch code {
	case wsaEINTR:
		return api.ErrInterrupted
	case wsaEWOULDBLOCK:
		return iox.ErrWouldBlock
	case wsaEINPROGRESS, wsaEALREADY, errorIOPending:
		return api.ErrInProgress
	case wsaETIMEDOUT, errorWaitTimeout:
		return api.ErrTimedOut
	case wsaECONNRESET, wsaECONNABORTED, wsaENOTCONN, wsaEHOSTUNREACH, wsaENETUNREACH,
		wsaENETDOWN, wsaEDISCON, errorNetnameDeleted, errorConnectionAborted:
		return api.ErrConnReset
	case wsaECONNREFUSED, errorConnectionRefused:
		return api.ErrConnRefused
	case wsaEADDRINUSE:
		return api.ErrAddrInUse
	case wsaEADDRNOTAVAIL:
		return api.ErrAddrNotAvailable
	case wsaEACCES:
		return api.ErrAccessDenied
	case wsaEMFILE:
		return api.ErrTooManyFiles
	case wsaENOBUFS:
		return api.ErrNoBuffers
	case wsaEBADF, wsaENOTSOCK, errorOperationAborted:
		return api.ErrClosed
	case wsaEINVAL:
		return api.ErrInvalidArgument
	case wsaEOPNOTSUPP, wsaEAFNOSUPPORT, wsaEPROTONOSUPPORT:
		return api.ErrNotSupported
	}
	return nil
}

// Aborted reports whether an overlapped operation was cancelled because its
// socket was closed.
func Aborted(code syscall.Errno) bool {
	return code == errorOperationAborted
}

// WouldBlock reports whether a non-overlapped call could not proceed.
func WouldBlock(code syscall.Errno) bool {
	return code == wsaEWOULDBLOCK
}

// SendFatal reports whether a send failure ends the connection.
func SendFatal(code syscall.Errno) bool {
	switch code {
	case wsaECONNRESET, wsaECONNABORTED, wsaENOTCONN, wsaENETDOWN, wsaENETUNREACH,
		wsaEHOSTUNREACH, wsaETIMEDOUT, wsaEDISCON, errorNetnameDeleted, errorConnectionAborted:
		return true
	}
	return false
}

// RecvFatal reports whether a receive failure ends the connection.
func RecvFatal(code syscall.Errno) bool {
	switch code {
	case wsaECONNREFUSED, errorConnectionRefused:
		return true
	}
	return SendFatal(code)
}
