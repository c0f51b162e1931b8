package redistier

import "github.com/redis/go-redis/v9"

// KEYS[1] user index; KEYS[2..n+1] record keys of the index snapshot.
// ARGV[1] limit; ARGV[2] n; ARGV[3..n+2] snapshot ids in index order.
// Returns false when the index no longer matches the snapshot, otherwise the
// evicted session ids, oldest first.
const enforceLimitScript = `
local limit = tonumber(ARGV[1])
local n = tonumber(ARGV[2])
local members = redis.call("ZRANGE", KEYS[1], 0, -1)
if #members ~= n then
  return false
end
for i = 1, n do
  if members[i] ~= ARGV[i + 2] then
    return false
  end
end

local live = {}
for i = 1, n do
  if redis.call("EXISTS", KEYS[i + 1]) == 1 then
    live[#live + 1] = i
  else
    redis.call("ZREM", KEYS[1], ARGV[i + 2])
  end
end

local evicted = {}
for j = 1, #live - limit do
  local i = live[j]
  redis.call("DEL", KEYS[i + 1])
  redis.call("ZREM", KEYS[1], ARGV[i + 2])
  evicted[#evicted + 1] = ARGV[i + 2]
end
return evicted
`

var enforceLimitLua = redis.NewScript(enforceLimitScript)

// KEYS[1] record; KEYS[2] user index; ARGV[1] session id.
const deleteSessionScript = `
local existed = redis.call("DEL", KEYS[1])
redis.call("ZREM", KEYS[2], ARGV[1])
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// KEYS[1] user index; KEYS[2..n+1] record keys of the index snapshot.
// ARGV[1] n; ARGV[2..n+1] snapshot ids. Returns false when the index no
// longer matches the snapshot, otherwise the number of records removed.
const invalidateUserScript = `
local n = tonumber(ARGV[1])
local members = redis.call("ZRANGE", KEYS[1], 0, -1)
if #members ~= n then
  return false
end
for i = 1, n do
  if members[i] ~= ARGV[i + 1] then
    return false
  end
end

local removed = 0
for i = 1, n do
  removed = removed + redis.call("DEL", KEYS[i + 1])
end
redis.call("DEL", KEYS[1])
return removed
`

var invalidateUserLua = redis.NewScript(invalidateUserScript)

// KEYS[1] record; KEYS[2] user index; ARGV[1] blob; ARGV[2] ttl ms;
// ARGV[3] score; ARGV[4] session id. Never recreates a deleted record.
const touchSessionScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
redis.call("ZADD", KEYS[2], ARGV[3], ARGV[4])
redis.call("PEXPIRE", KEYS[2], ARGV[2])
return 1
`

var touchSessionLua = redis.NewScript(touchSessionScript)
