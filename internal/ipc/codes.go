package ipc

import "fmt"

// Descriptor is the interface token every scene session manager request starts with
const Descriptor = "OHOS.ISceneSessionManager"

// MessageCode selects the remote method. Values are part of the wire contract.
type MessageCode uint32

const (
	TransRequestSession MessageCode = iota + 1
	TransConnect
	TransActivate
	TransForeground
	TransBackground
	TransDestroy
	TransGetSessionInfo
	TransGetSessionInfos
	TransGetFoldStatus
	TransDump
	TransDeactivate
	TransRequestLayout
	TransWaitRotation
)

var codeNames = map[MessageCode]string{
	TransRequestSession:  "request_session",
	TransConnect:         "connect",
	TransActivate:        "activate",
	TransForeground:      "foreground",
	TransBackground:      "background",
	TransDestroy:         "destroy",
	TransGetSessionInfo:  "get_session_info",
	TransGetSessionInfos: "get_session_infos",
	TransGetFoldStatus:   "get_fold_status",
	TransDump:            "dump",
	TransDeactivate:      "deactivate",
	TransRequestLayout:   "request_layout",
	TransWaitRotation:    "wait_rotation",
}

func (c MessageCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code_%d", uint32(c))
}
