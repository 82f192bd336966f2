package redis

const (
	// upsertUserScript atomically updates a user and its login index
	upsertUserScript = `
local user_key = KEYS[1]       -- logtime:user:{id}
local login_key = KEYS[2]      -- logtime:user:login:{login}
local users_set = KEYS[3]      -- logtime:users
local login_prefix = ARGV[6]   -- logtime:user:login:

local id = ARGV[1]
local login = ARGV[2]
local location = ARGV[3]
local created_at = ARGV[4]
local updated_at = ARGV[5]

-- Keep the original creation time
local existing_created = redis.call('HGET', user_key, 'created_at')
if existing_created then
  created_at = existing_created
end

-- Drop a stale login index after a rename
local previous_login = redis.call('HGET', user_key, 'login')
if previous_login and previous_login ~= login then
  local previous_key = login_prefix .. previous_login
  if redis.call('GET', previous_key) == id then
    redis.call('DEL', previous_key)
  end
end

-- State is left untouched
redis.call('HSET', user_key,
  'id', id,
  'login', login,
  'location', location,
  'created_at', created_at,
  'updated_at', updated_at
)

redis.call('SET', login_key, id)
redis.call('SADD', users_set, id)

return 'OK'
`

	// setStateScript replaces the presence state of an existing user
	setStateScript = `
local user_key = KEYS[1]       -- logtime:user:{id}

local state = ARGV[1]

if redis.call('EXISTS', user_key) == 0 then
  return 0
end

redis.call('HSET', user_key, 'state', state)

return 1
`

	// bindCredentialScript maps a credential digest to an existing user
	bindCredentialScript = `
local credential_key = KEYS[1] -- logtime:credential:{sha256}
local user_key = KEYS[2]       -- logtime:user:{id}

local id = ARGV[1]
local ttl_seconds = tonumber(ARGV[2])

if redis.call('EXISTS', user_key) == 0 then
  return 0
end

if ttl_seconds > 0 then
  redis.call('SET', credential_key, id, 'EX', ttl_seconds)
else
  redis.call('SET', credential_key, id)
end

return 1
`
)
