/*
Package ipc implements the parcel protocol of the scene session manager.

A request is a message code plus a Parcel whose first field is the interface
token Descriptor. The Stub rejects any request whose token does not match
before reading further, then dispatches by code to the directory. Replies
lead with the directory's int32 result code followed by the payload, so a
do-nothing or invalid-session result reaches the caller intact while
transport faults surface as Go errors wrapping WSErrorIPCFailed.

The Proxy builds requests on the client side and logs the exact failing
step: token write, payload write, null remote, send, or reply decode.
Remote abstracts the carrier; LocalRemote calls a stub in-process and the
grpc package carries parcels between processes.
*/
package ipc
